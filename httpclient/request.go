package httpclient

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request is one call to a sidecar.
type Request struct {
	Method string
	// Path is joined to the client's BaseURL unless it is an absolute URL.
	Path    string
	Query   url.Values
	Headers map[string]string
	// Body is a *MultipartBody, []byte, string or a value sent as JSON. It
	// is encoded again for every attempt, so a retry resends it whole.
	Body any
	// Auth replaces the client's auth for this call.
	Auth *AuthConfig
}

// target resolves the request URL against base and adds the query.
func (r Request) target(base string) (string, error) {
	u, err := url.Parse(r.Path)
	if err != nil {
		return "", err
	}
	if !u.IsAbs() && base != "" {
		if u, err = url.Parse(strings.TrimRight(base, "/") + "/" + strings.TrimLeft(r.Path, "/")); err != nil {
			return "", err
		}
	}
	if len(r.Query) > 0 {
		q := u.Query()
		for k, vs := range r.Query {
			q[k] = vs
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// encode returns the body and the content type it implies.
func (r Request) encode() (io.Reader, string, error) {
	switch v := r.Body.(type) {
	case nil:
		return nil, "", nil
	case *MultipartBody:
		return v.encode()
	case []byte:
		return bytes.NewReader(v), "application/octet-stream", nil
	case string:
		return strings.NewReader(v), "text/plain; charset=utf-8", nil
	}
	data, err := json.Marshal(r.Body)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(data), "application/json", nil
}

// Response is a completed call. Body holds at most maxBodyBytes.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.StatusCode/100 == 2 }
