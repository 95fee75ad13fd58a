package emit

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"path"

	"github.com/wolfeidau/assetgraph/internal/models"
)

const inlineMapPrefix = "//# sourceMappingURL=data:application/json;base64,"

// section places one module's source map at the position its code starts
// in the chunk.
type section struct {
	Offset struct {
		Line   int `json:"line"`
		Column int `json:"column"`
	} `json:"offset"`
	Map json.RawMessage `json:"map"`
}

// indexMap is a version 3 source map made of per-module sections, so module
// maps are placed by offset rather than re-encoded.
type indexMap struct {
	Version  int       `json:"version"`
	File     string    `json:"file"`
	Sections []section `json:"sections"`
}

// splitInlineMap removes a trailing inline source map comment from code and
// returns the decoded map. Code without one, or whose comment is not the
// last line, is returned unchanged with a nil map.
func splitInlineMap(code []byte) ([]byte, json.RawMessage) {
	i := bytes.LastIndex(code, []byte(inlineMapPrefix))
	if i < 0 || (i > 0 && code[i-1] != '\n') {
		return code, nil
	}

	encoded := bytes.TrimSpace(code[i+len(inlineMapPrefix):])
	if bytes.ContainsAny(encoded, "\n\r \t") {
		return code, nil
	}

	data, err := base64.StdEncoding.DecodeString(string(encoded))
	if err != nil || !json.Valid(data) {
		return code, nil
	}
	return code[:i], data
}

// position returns the zero based line and column at the end of buf.
func position(buf []byte) (int, int) {
	line := bytes.Count(buf, []byte{'\n'})
	column := len(buf) - (bytes.LastIndexByte(buf, '\n') + 1)
	return line, column
}

// attachSourceMap stores the chunk's index map and appends the comment that
// points at it. Hash and File keep describing the content without it.
func attachSourceMap(c *models.Chunk, sections []section) {
	if len(sections) == 0 {
		return
	}

	// sections only hold valid JSON
	data, _ := json.Marshal(indexMap{Version: 3, File: path.Base(c.File), Sections: sections})
	c.SourceMap = data

	if n := len(c.Content); n > 0 && c.Content[n-1] != '\n' {
		c.Content = append(c.Content, '\n')
	}
	c.Content = append(c.Content, "//# sourceMappingURL="+path.Base(c.File)+".map\n"...)
}
