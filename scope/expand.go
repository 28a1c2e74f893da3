package scope

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jonwraymond/draftops/entity"
)

// ErrUndefined is returned by strict expansion of an unknown variable.
var ErrUndefined = errors.New("scope: undefined variable")

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_.\-]*)\s*\}\}`)

// Expand replaces {{name}} placeholders in s with vars[name].
//
// Semantics:
//   - Whitespace inside the braces is ignored: {{ host }} equals {{host}}.
//   - Unknown names are left untouched unless strict is set, in which case
//     Expand fails listing every unknown name.
func Expand(s string, vars map[string]string, strict bool) (string, error) {
	if !strings.Contains(s, "{{") {
		return s, nil
	}

	missing := make(map[string]struct{})
	out := placeholder.ReplaceAllStringFunc(s, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		if v, ok := vars[name]; ok {
			return v
		}
		missing[name] = struct{}{}
		return m
	})
	if strict && len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for k := range missing {
			names = append(names, k)
		}
		sort.Strings(names)
		return "", fmt.Errorf("%w: %s", ErrUndefined, strings.Join(names, ", "))
	}
	return out, nil
}

// ExpandRequest returns a copy of req ready to send: the URI, active
// header and query rows, body, and credentials are expanded with vars.
func ExpandRequest(req entity.Request, vars map[string]string, strict bool) (entity.Request, error) {
	var err error
	expand := func(s string) string {
		if err != nil {
			return s
		}
		var out string
		out, err = Expand(s, vars, strict)
		return out
	}
	rows := func(in []entity.Row) []entity.Row {
		out := make([]entity.Row, 0, len(in))
		for _, r := range in {
			if !r.Active {
				continue
			}
			r.Key = expand(r.Key)
			r.Value = expand(r.Value)
			out = append(out, r)
		}
		return out
	}

	req.URI = expand(req.URI)
	req.Headers = rows(req.Headers)
	req.Query = rows(req.Query)
	req.Body.Content = expand(req.Body.Content)
	req.Body.Form = rows(req.Body.Form)
	req.Auth.Token = expand(req.Auth.Token)
	req.Auth.Username = expand(req.Auth.Username)
	req.Auth.Password = expand(req.Auth.Password)
	if err != nil {
		return entity.Request{}, err
	}
	return req, nil
}
