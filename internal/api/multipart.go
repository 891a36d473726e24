package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/blackmichael/connectify/internal/domain"
)

const (
	// pictureField is the form field the binary part is sent under.
	pictureField = "picture"

	// picturePathField carries the attachment's filename so the server can
	// store the asset reference.
	picturePathField = "picturePath"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeMultipart flattens body's JSON form into one form field per key and
// appends att as a file part.
func encodeMultipart(body any, att *domain.Attachment) (io.Reader, string, error) {
	fields, err := flattenFields(body)
	if err != nil {
		return nil, "", err
	}
	if _, ok := fields[picturePathField]; !ok && att.Filename != "" {
		fields[picturePathField] = att.Filename
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(pictureField), quoteEscaper.Replace(att.Filename)))
	h.Set("Content-Type", mimetype.Detect(att.Data).String())

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create %s part: %w", pictureField, err)
	}
	if _, err := part.Write(att.Data); err != nil {
		return nil, "", fmt.Errorf("write %s part: %w", pictureField, err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// flattenFields turns body into string form values keyed by its JSON field
// names. Nulls are dropped, nested values are sent as JSON text.
func flattenFields(body any) (map[string]string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var values map[string]any
	if err := dec.Decode(&values); err != nil {
		return nil, fmt.Errorf("multipart body must encode as a JSON object: %w", err)
	}

	fields := make(map[string]string, len(values))
	for k, v := range values {
		switch tv := v.(type) {
		case nil:
			continue
		case string:
			fields[k] = tv
		case json.Number:
			fields[k] = tv.String()
		case bool:
			fields[k] = strconv.FormatBool(tv)
		default:
			nested, err := json.Marshal(tv)
			if err != nil {
				return nil, fmt.Errorf("marshal field %s: %w", k, err)
			}
			fields[k] = string(nested)
		}
	}
	return fields, nil
}
