package emit

import (
	"encoding/binary"

	"github.com/minio/crc64nvme"
	"github.com/mr-tron/base58"
)

// ContentHash returns the CRC-64/NVME checksum of content, base58 encoded.
// It depends on nothing but the bytes given.
func ContentHash(content []byte) string {
	h := crc64nvme.New()
	h.Write(content)

	var sum [8]byte
	binary.BigEndian.PutUint64(sum[:], h.Sum64())
	return base58.Encode(sum[:])
}
