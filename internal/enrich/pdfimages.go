package enrich

import "bytes"

var (
	dctMarker   = []byte("/DCTDecode")
	streamStart = []byte("stream")
	streamEnd   = []byte("endstream")
	jpegSOI     = []byte{0xFF, 0xD8}
)

// extractJPEGPages pulls the raw JPEG streams out of a page-image PDF.
//
// The PDFs this bridge sees are produced by the device render pipeline: one
// full-page JPEG per page, stored as an uncompressed DCTDecode image stream.
// For that shape a marker scan is sufficient; a general PDF parser is not
// needed and would drag in a far larger dependency surface.
func extractJPEGPages(pdf []byte) [][]byte {
	var pages [][]byte

	rest := pdf
	for {
		i := bytes.Index(rest, dctMarker)
		if i < 0 {
			break
		}
		rest = rest[i+len(dctMarker):]

		j := bytes.Index(rest, streamStart)
		if j < 0 {
			break
		}
		data := rest[j+len(streamStart):]
		// EOL after the stream keyword.
		data = bytes.TrimLeft(data, "\r\n")

		k := bytes.Index(data, streamEnd)
		if k < 0 {
			break
		}

		img := bytes.TrimRight(data[:k], "\r\n")
		if bytes.HasPrefix(img, jpegSOI) {
			pages = append(pages, img)
		}

		rest = data[k+len(streamEnd):]
	}

	return pages
}
