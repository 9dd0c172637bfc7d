package report

import (
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/couchcryptid/geocontext-service/internal/domain"
)

var (
	validate   = newValidator()
	reportKeys = jsonKeys(reflect.TypeFor[domain.AiReport]())
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	v.RegisterTagNameFunc(jsonFieldName)
	return v
}

// SchemaError explains why a narrative did not match the report schema.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return "schema violation: " + e.Reason
}

func (e *SchemaError) Unwrap() error {
	return domain.ErrSchemaViolation
}

// Parse decodes raw model output into a report. Unknown fields, wrong types,
// blank strings, null lists and trailing data are all rejected. A surrounding
// markdown code fence is stripped first.
func Parse(raw string) (domain.AiReport, error) {
	body := stripCodeFence(raw)
	if body == "" {
		return domain.AiReport{}, &SchemaError{Reason: "empty response"}
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()

	var r domain.AiReport
	if err := dec.Decode(&r); err != nil {
		return domain.AiReport{}, &SchemaError{Reason: err.Error()}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return domain.AiReport{}, &SchemaError{Reason: "trailing data after report object"}
	}
	// encoding/json folds key case when decoding into a struct.
	if err := checkKeys(body); err != nil {
		return domain.AiReport{}, err
	}
	if err := Validate(r); err != nil {
		return domain.AiReport{}, err
	}
	return r, nil
}

// Validate checks a decoded report against the schema rules.
func Validate(r domain.AiReport) error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
		return &SchemaError{Reason: "invalid fields: " + strings.Join(fields, ", ")}
	}
	return &SchemaError{Reason: err.Error()}
}

func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	// Drop the info string, e.g. ```json.
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		if info := strings.TrimSpace(s[:i]); info == "" || !strings.ContainsAny(info, "{[") {
			s = s[i+1:]
		}
	}
	return strings.TrimSpace(s)
}

func checkKeys(body string) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return &SchemaError{Reason: err.Error()}
	}
	var unknown []string
	for k := range fields {
		if _, ok := reportKeys[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return &SchemaError{Reason: "unknown fields: " + strings.Join(unknown, ", ")}
	}
	return nil
}

func jsonKeys(t reflect.Type) map[string]struct{} {
	keys := make(map[string]struct{}, t.NumField())
	for i := range t.NumField() {
		keys[jsonFieldName(t.Field(i))] = struct{}{}
	}
	return keys
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" || name == "" {
		return f.Name
	}
	return name
}
