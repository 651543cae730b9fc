package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	apperrors "github.com/pscheid92/wagate/internal/platform/errors"
)

const (
	msgBodyEmpty      = "The body was empty!"
	msgBodyNotCorrect = "The body is not correct"

	maxBodyBytes = 1 << 20
)

// flag is a boolean body field that records whether it was present.
// It accepts JSON booleans and strings, and form values.
type flag struct {
	set   bool
	value bool
}

func (f *flag) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		f.set, f.value = true, b
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return f.UnmarshalParam(s)
}

func (f *flag) UnmarshalParam(param string) error {
	b, err := strconv.ParseBool(strings.TrimSpace(param))
	if err != nil {
		return err
	}
	f.set, f.value = true, b
	return nil
}

// bindBody decodes a JSON or form body into dst. An absent or empty body is
// rejected before anything else happens.
func bindBody(c echo.Context, dst any) error {
	req := c.Request()
	raw, err := io.ReadAll(io.LimitReader(req.Body, maxBodyBytes))
	if err != nil {
		return apperrors.ValidationError(msgBodyNotCorrect)
	}
	if isEmptyBody(raw, req.Header.Get(echo.HeaderContentType)) {
		return apperrors.ValidationError(msgBodyEmpty)
	}

	req.Body = io.NopCloser(bytes.NewReader(raw))
	if err := (&echo.DefaultBinder{}).BindBody(c, dst); err != nil {
		return apperrors.ValidationError(msgBodyNotCorrect).WithField("cause", err.Error())
	}
	return nil
}

func isEmptyBody(raw []byte, contentType string) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return true
	}

	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case echo.MIMEApplicationJSON:
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return false
		}
		return len(fields) == 0
	case echo.MIMEApplicationForm:
		values, err := url.ParseQuery(string(trimmed))
		if err != nil {
			return false
		}
		return len(values) == 0
	default:
		return false
	}
}

// required rejects the request if any of the values is blank.
func required(values ...string) error {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return apperrors.ValidationError(msgBodyNotCorrect)
		}
	}
	return nil
}
