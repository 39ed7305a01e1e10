// Package rawhttp renders HTTP exchanges as text for the --debug output of the admin client.
//
// Textual bodies are indented when they are JSON, XML or HTML. Binary bodies, such as the
// images inside an upload, are replaced by a one-line summary of their size and type.
package rawhttp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httputil"
	"strings"

	"github.com/beevik/etree"
	"github.com/gabriel-vasile/mimetype"
	"github.com/yosssi/gohtml"
)

// Prettify attempts to indent the body and returns an empty slice when it is not JSON, XML or HTML.
func Prettify(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return []byte{}, nil
	}

	var jsonData any
	if err := json.Unmarshal(trimmed, &jsonData); err == nil {
		output, err := json.MarshalIndent(jsonData, "", "  ")
		if err != nil {
			return []byte{}, fmt.Errorf("remarshalling JSON: %w", err)
		}
		return output, nil
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(trimmed); err == nil && doc.Root() != nil {
		doc.Indent(1)
		var output bytes.Buffer
		if _, err := doc.WriteTo(&output); err != nil {
			return []byte{}, fmt.Errorf("writing indented XML: %w", err)
		}
		return output.Bytes(), nil
	}

	contentType := mimetype.Detect(trimmed).String()
	if strings.Contains(contentType, "text/html") ||
		(bytes.HasPrefix(trimmed, []byte("<")) && !bytes.HasPrefix(trimmed, []byte("<?xml"))) {
		output := gohtml.FormatBytes(trimmed)
		if len(output) > 0 && !bytes.Equal(output, trimmed) {
			return output, nil
		}
	}

	return []byte{}, nil
}

// isText reports whether the detected type of body is safe to print.
func isText(detected *mimetype.MIME) bool {
	for mtype := detected; mtype != nil; mtype = mtype.Parent() {
		if mtype.Is("text/plain") {
			return true
		}
	}
	return false
}

// Body renders a message body for display. contentType is the Content-Type header of the message.
func Body(body []byte, contentType string) ([]byte, error) {
	if len(body) == 0 {
		return []byte{}, nil
	}

	mediaType, params, _ := mime.ParseMediaType(contentType)
	if strings.HasPrefix(mediaType, "multipart/") && params["boundary"] != "" {
		return multipartBody(body, params["boundary"])
	}

	detected := mimetype.Detect(body)
	if !isText(detected) {
		return []byte(fmt.Sprintf("[%d bytes of %s]", len(body), detected.String())), nil
	}

	pretty, err := Prettify(body)
	if err != nil || len(pretty) == 0 {
		return body, nil
	}
	return pretty, nil
}

// multipartBody prints every part with its headers and a rendered body.
func multipartBody(body []byte, boundary string) ([]byte, error) {
	reader := multipart.NewReader(bytes.NewReader(body), boundary)

	var out bytes.Buffer
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading multipart body: %w", err)
		}

		content, err := io.ReadAll(part)
		if err != nil {
			return nil, fmt.Errorf("reading part %s: %w", part.FormName(), err)
		}
		rendered, err := Body(content, part.Header.Get("Content-Type"))
		if err != nil {
			return nil, err
		}

		fmt.Fprintf(&out, "--%s\r\n", boundary)
		for name, values := range part.Header {
			for _, value := range values {
				fmt.Fprintf(&out, "%s: %s\r\n", name, value)
			}
		}
		out.WriteString("\r\n")
		out.Write(rendered)
		out.WriteString("\r\n")
	}
	fmt.Fprintf(&out, "--%s--\r\n", boundary)
	return out.Bytes(), nil
}

// DumpRequest renders req and resets its body so it can still be sent.
func DumpRequest(req *http.Request) (string, error) {
	head, err := httputil.DumpRequestOut(req, false)
	if err != nil {
		return "", fmt.Errorf("dumping request: %w", err)
	}

	var body []byte
	if req.Body != nil && req.Body != http.NoBody {
		body, err = io.ReadAll(req.Body)
		if err != nil {
			return "", fmt.Errorf("reading request body: %w", err)
		}
		req.Body.Close()
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	rendered, err := Body(body, req.Header.Get("Content-Type"))
	if err != nil {
		return "", err
	}
	return string(head) + string(rendered), nil
}

// DumpResponse renders res and resets its body so it can still be consumed.
// Content-Encoding must already have been removed from the body.
func DumpResponse(res *http.Response) (string, error) {
	head, err := httputil.DumpResponse(res, false)
	if err != nil {
		return "", fmt.Errorf("dumping response: %w", err)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}
	res.Body.Close()
	res.Body = io.NopCloser(bytes.NewReader(body))

	rendered, err := Body(body, res.Header.Get("Content-Type"))
	if err != nil {
		return "", err
	}
	return string(head) + string(rendered), nil
}
