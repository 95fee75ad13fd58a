package assets

// Config locates the manifest and sets page-wide template values.
type Config struct {
	// Path to manifest.json written by the build
	ManifestPath string
	// Prefix prepended to every script and stylesheet URL (e.g., "/static/")
	PublicPath string
	// Page title passed to templates
	Title string
}

// DefaultConfig reads dist/manifest.json and titles pages "App".
func DefaultConfig() Config {
	return Config{
		ManifestPath: "dist/manifest.json",
		PublicPath:   "",
		Title:        "App",
	}
}
