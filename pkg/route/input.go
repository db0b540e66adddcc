package route

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/morabah/posalpro-app-sub013/pkg/domain"
	"github.com/morabah/posalpro-app-sub013/pkg/schema"
)

type input struct {
	query map[string]any
	body  map[string]any
	raw   []byte
}

func hasBody(method string) bool {
	return method != http.MethodGet && method != http.MethodHead
}

// parseInput reads and validates the query string and body.
// The raw body of mutating requests is always read so it can be hashed and
// handed to the handler; it is only decoded when a body validator is set.
func (p *Pipeline) parseInput(r *http.Request, cfg Config) (*input, error) {
	in := &input{}

	if cfg.Query != nil {
		coerce, _ := cfg.Query.(schema.Schema)
		in.query = schema.ParseQuery(coerce, r.URL.Query())
		if err := cfg.Query.Validate(in.query); err != nil {
			return nil, domain.Validation("Invalid query parameters", schema.FieldErrors(err))
		}
	}

	if !hasBody(r.Method) {
		return in, nil
	}

	if cfg.Body != nil {
		ct := r.Header.Get(domain.HeaderContentType)
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != "application/json" {
			return nil, domain.InvalidContentType(ct)
		}
	}

	raw, err := p.readBody(r)
	if err != nil {
		return nil, err
	}
	in.raw = raw
	r.Body = io.NopCloser(bytes.NewReader(raw))

	if cfg.Body == nil {
		return in, nil
	}

	in.body, err = decodeObject(raw)
	if err != nil {
		return nil, err
	}
	if err := cfg.Body.Validate(in.body); err != nil {
		return nil, domain.Validation("Invalid request body", schema.FieldErrors(err))
	}
	return in, nil
}

func (p *Pipeline) readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, p.maxBody+1))
	if err != nil {
		return nil, domain.Wrap(domain.CodeValidation, "Failed to read request body", err)
	}
	if int64(len(raw)) > p.maxBody {
		return nil, domain.BadRequest(fmt.Sprintf("Request body too large: limit is %d bytes", p.maxBody))
	}
	return raw, nil
}

// decodeObject parses a JSON object. An empty body decodes to an empty object
// so that required fields are reported individually. Numbers are kept as
// json.Number so the handler and the payload hash see the literal digits.
func decodeObject(raw []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		var syntax *json.SyntaxError
		if errors.As(err, &syntax) {
			return nil, domain.Wrap(domain.CodeValidation, fmt.Sprintf("Invalid JSON body at offset %d", syntax.Offset), err)
		}
		return nil, domain.Wrap(domain.CodeValidation, "Invalid JSON body", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, domain.BadRequest(fmt.Sprintf("Invalid JSON body at offset %d", dec.InputOffset()))
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, domain.BadRequest("Invalid JSON body: expected an object")
	}
	return obj, nil
}
