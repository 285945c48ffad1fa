// internal/accept/submit.go
package accept

import (
	"encoding/json"
	"fmt"

	"github.com/mbeck/jobwatch/internal/listing"
)

// PageEvaluator is the slice of the browser the submitter needs.
type PageEvaluator interface {
	Evaluate(script string, out any) error
}

// submitScript posts the accept form from inside the page, carrying the
// session cookies. An empty action falls back to the current page URL.
const submitScript = `(async (action, method, fields) => {
	const body = new URLSearchParams();
	for (const [k, v] of Object.entries(fields)) body.append(k, v);
	const target = action || window.location.href;
	const res = await fetch(target, {
		method: method || "POST",
		credentials: "include",
		headers: { "Content-Type": "application/x-www-form-urlencoded" },
		body: body.toString(),
	});
	return { ok: res.ok, status: res.status };
})(%q, %q, %s)`

type submitResult struct {
	OK     bool `json:"ok"`
	Status int  `json:"status"`
}

// PageSubmitter submits accept forms through the page engine.
type PageSubmitter struct {
	eng PageEvaluator
}

func NewPageSubmitter(eng PageEvaluator) *PageSubmitter {
	return &PageSubmitter{eng: eng}
}

func (s *PageSubmitter) Submit(e listing.Entry) error {
	action, method, fields := submissionPayload(e)

	encoded, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("accept submit %s: encode fields: %w", e.Key, err)
	}

	var res submitResult
	script := fmt.Sprintf(submitScript, action, method, encoded)
	if err := s.eng.Evaluate(script, &res); err != nil {
		return fmt.Errorf("accept submit %s: %w", e.Key, err)
	}
	if !res.OK {
		return fmt.Errorf("accept submit %s: status %d", e.Key, res.Status)
	}
	return nil
}

// submissionPayload builds the form submission from the entry's declared
// form: its fields plus the accept control's name/value pair. Method
// defaults to POST, action to the current page URL (resolved in-page).
func submissionPayload(e listing.Entry) (action, method string, fields map[string]string) {
	fields = make(map[string]string, len(e.Form.Fields)+1)
	for k, v := range e.Form.Fields {
		fields[k] = v
	}
	if e.Form.AcceptName != "" {
		fields[e.Form.AcceptName] = e.Form.AcceptValue
	}
	return e.Form.Action, e.Form.Method, fields
}
