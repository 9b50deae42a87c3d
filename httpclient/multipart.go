package httpclient

import (
	"bytes"
	"cmp"
	"fmt"
	"io"
	"maps"
	"mime/multipart"
	"net/textproto"
	"slices"
	"strings"
)

// MultipartBody is a multipart/form-data request body. Fields are written
// in key order, followed by files.
type MultipartBody struct {
	Fields map[string]string
	Files  []FileField
}

// FileField is a file part of a multipart body.
type FileField struct {
	// FieldName is the form field name, e.g. "audio".
	FieldName string
	// FileName defaults to FieldName.
	FileName string
	// ContentType defaults to application/octet-stream.
	ContentType string
	Data        []byte
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func (m *MultipartBody) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, k := range slices.Sorted(maps.Keys(m.Fields)) {
		if err := w.WriteField(k, m.Fields[k]); err != nil {
			return nil, "", err
		}
	}
	for _, f := range m.Files {
		part, err := w.CreatePart(f.header())
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func (f FileField) header() textproto.MIMEHeader {
	name := cmp.Or(f.FileName, f.FieldName)
	h := make(textproto.MIMEHeader, 2)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(f.FieldName), quoteEscaper.Replace(name)))
	h.Set("Content-Type", cmp.Or(f.ContentType, "application/octet-stream"))
	return h
}
