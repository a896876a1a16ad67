// Package filetype guesses the cmis:contentStreamMimeType of a document
// content when the caller gives none.
package filetype

import (
	"bufio"
	"io"
	"mime"
	"path"

	ftype "github.com/h2non/filetype"
)

// DefaultType is sent when neither the content nor the file name tell the
// type.
const DefaultType = "application/octet-stream"

// headerSize is what h2non/filetype reads to recognize a format.
const headerSize = 262

// FromName returns the type registered for the extension of the file name,
// without its parameters, or "".
func FromName(filename string) string {
	ext := path.Ext(filename)
	if ext == "" {
		return ""
	}
	mediatype, _, err := mime.ParseMediaType(mime.TypeByExtension(ext))
	if err != nil {
		return ""
	}
	return mediatype
}

// FromHeader returns the type recognized by the magic numbers at the start
// of a content, or "".
func FromHeader(head []byte) string {
	kind, err := ftype.Match(head)
	if err != nil || kind == ftype.Unknown {
		return ""
	}
	return kind.MIME.Value
}

// Sniff returns the type of a content, and a reader on the whole content.
// The magic numbers win over the extension, which is the only hint for the
// text formats.
func Sniff(filename string, r io.Reader) (string, io.Reader) {
	br := bufio.NewReaderSize(r, headerSize)
	// A read error is kept by br and returned to the reader of the content.
	head, _ := br.Peek(headerSize)
	if t := FromHeader(head); t != "" {
		return t, br
	}
	if t := FromName(filename); t != "" {
		return t, br
	}
	return DefaultType, br
}
