package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pnljournal/internal/core"
)

const maxBodyBytes = 64 << 10

// ParseMonthParams reads ?year=&month=. A missing part falls back to the
// month of now; a present part must parse and the result must be valid.
func ParseMonthParams(values url.Values, now time.Time) (core.YearMonth, error) {
	ym := core.YearMonth{Year: now.Year(), Month: int(now.Month())}
	for _, part := range []struct {
		name string
		dst  *int
	}{{"year", &ym.Year}, {"month", &ym.Month}} {
		raw := strings.TrimSpace(values.Get(part.name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return core.YearMonth{}, fmt.Errorf("%w: %s %q", core.ErrInvalidMonth, part.name, raw)
		}
		*part.dst = n
	}
	if err := ym.Validate(); err != nil {
		return core.YearMonth{}, err
	}
	return ym, nil
}

func parsePathMonth(r *http.Request) (core.YearMonth, error) {
	y, errY := strconv.Atoi(r.PathValue("year"))
	m, errM := strconv.Atoi(r.PathValue("month"))
	if errY != nil || errM != nil {
		return core.YearMonth{}, core.ErrInvalidMonth
	}
	ym := core.YearMonth{Year: y, Month: m}
	return ym, ym.Validate()
}

// RequestBodyParser reads a form or JSON object body into flat string
// fields. htmx posts forms; API clients may post JSON with numbers.
type RequestBodyParser struct {
	body   []byte
	err    error
	fields map[string]string
	done   bool
}

// NewRequestBodyParser reads at most maxBodyBytes of the body.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

func (p *RequestBodyParser) Parse() error {
	if p.done {
		return p.err
	}
	p.done = true
	if p.err != nil {
		return p.err
	}

	p.fields = map[string]string{}
	body := strings.TrimSpace(string(p.body))
	if strings.HasPrefix(body, "{") {
		var obj map[string]any
		if p.err = json.Unmarshal([]byte(body), &obj); p.err != nil {
			return p.err
		}
		for k, v := range obj {
			p.fields[k] = scalar(v)
		}
		return nil
	}

	form, err := url.ParseQuery(body)
	if err != nil {
		p.err = err
		return err
	}
	for k := range form {
		p.fields[k] = form.Get(k)
	}
	return nil
}

// Get returns the trimmed, sanitized field or "".
func (p *RequestBodyParser) Get(key string) string {
	return strings.TrimSpace(sanitizeInput(p.fields[key]))
}

// scalar renders a decoded JSON value as form text; objects and arrays
// become "".
func scalar(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return ""
}
