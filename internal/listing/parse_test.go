// internal/listing/parse_test.go
package listing

import (
	"testing"
)

const listingFixture = `<!DOCTYPE html>
<html><body>
<table class="job-table">
<tr class="job-row">
  <td>#1001 Berlin, Gericht 01.09.2026 09:00</td>
  <td>
    <form action="/intern/meine-jobs" method="post">
      <input type="hidden" name="token" value="abc123">
      <input type="hidden" name="job_id" value="1001">
      <button type="submit" name="auftrag_annehmen" value="1001">Annehmen</button>
    </form>
  </td>
</tr>
<tr class="job-row">
  <td>#1002 Hamburg, Amt 02.09.2026 14:30</td>
  <td>
    <form method="post">
      <input type="hidden" name="token" value="def456">
      <input type="submit" name="annehmen" value="Annehmen">
    </form>
  </td>
</tr>
<tr class="job-row">
  <td>#1003 Bremen, Klinik 03.09.2026 08:00</td>
  <td>
    <form action="/intern/meine-jobs" method="post">
      <input type="hidden" name="token" value="ghi789">
      <button type="submit" name="annehmen" value="1003">Annehmen</button>
      <button type="submit" name="stornieren" value="1003">Stornieren</button>
    </form>
  </td>
</tr>
<tr class="job-row">
  <td>#1004 Kiel, Schule 04.09.2026 10:00</td>
  <td>
    <form action="/intern/meine-jobs/1004" method="get">
      <button type="submit" name="anzeigen" value="1004">Details</button>
    </form>
  </td>
</tr>
<tr class="job-row">
  <td>Hannover, Landgericht 05.09.2026 11:15</td>
  <td>
    <form method="post">
      <input type="hidden" name="token" value="jkl012">
      <button type="submit" name="annehmen" value="x">Annehmen</button>
    </form>
  </td>
</tr>
</table>
</body></html>`

func parseFixture(t *testing.T) []Entry {
	t.Helper()
	entries, err := Parse([]byte(listingFixture))
	if err != nil {
		t.Fatalf("Parse() err=%v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}
	return entries
}

func TestParse_ControlFlags(t *testing.T) {
	entries := parseFixture(t)

	byKey := make(map[string]Entry)
	for _, e := range entries {
		byKey[e.Key] = e
	}

	for _, key := range []string{"#1001", "#1002"} {
		e, ok := byKey[key]
		if !ok {
			t.Fatalf("entry %s missing", key)
		}
		if !e.HasAccept || e.HasCancel {
			t.Fatalf("entry %s: accept=%v cancel=%v, want accept-only", key, e.HasAccept, e.HasCancel)
		}
	}

	e1003, ok := byKey["#1003"]
	if !ok {
		t.Fatalf("entry #1003 missing")
	}
	if !e1003.HasAccept || !e1003.HasCancel {
		t.Fatalf("entry #1003: accept=%v cancel=%v, want both", e1003.HasAccept, e1003.HasCancel)
	}

	e1004, ok := byKey["#1004"]
	if !ok {
		t.Fatalf("entry #1004 missing")
	}
	if e1004.HasAccept || e1004.HasCancel {
		t.Fatalf("entry #1004 should have no accept/cancel controls")
	}
}

func TestParse_AcceptFormMetadata(t *testing.T) {
	entries := parseFixture(t)

	var e Entry
	for _, c := range entries {
		if c.Key == "#1001" {
			e = c
		}
	}

	if e.Form.Action != "/intern/meine-jobs" {
		t.Fatalf("action = %q", e.Form.Action)
	}
	if e.Form.Method != "POST" {
		t.Fatalf("method = %q", e.Form.Method)
	}
	if e.Form.AcceptName != "auftrag_annehmen" || e.Form.AcceptValue != "1001" {
		t.Fatalf("accept control = %q=%q", e.Form.AcceptName, e.Form.AcceptValue)
	}
	if e.Form.Fields["token"] != "abc123" || e.Form.Fields["job_id"] != "1001" {
		t.Fatalf("fields = %v", e.Form.Fields)
	}
	if _, ok := e.Form.Fields["auftrag_annehmen"]; ok {
		t.Fatalf("accept control leaked into plain fields")
	}
}

func TestParse_KeyDerivation(t *testing.T) {
	entries := parseFixture(t)

	// Numeric id wins when present.
	seen := map[string]bool{}
	for _, e := range entries {
		seen[e.Key] = true
	}
	for _, key := range []string{"#1001", "#1002", "#1003", "#1004"} {
		if !seen[key] {
			t.Fatalf("missing id-derived key %s", key)
		}
	}

	// Without an id the key falls back to the row's text fragment.
	var fallback Entry
	for _, e := range entries {
		if e.Key != "" && e.Key[0] != '#' {
			fallback = e
		}
	}
	if fallback.Key == "" {
		t.Fatalf("no fallback-key entry found")
	}
	if got := fallback.Key; len(got) > maxKeyFragment {
		t.Fatalf("fallback key too long: %d", len(got))
	}
	if want := "Hannover"; fallback.Key[:len(want)] != want {
		t.Fatalf("fallback key = %q, want %q prefix", fallback.Key, want)
	}
}

func TestParse_CancelOnlyForm(t *testing.T) {
	raw := []byte(`<tr><td>#2001</td><td><form method="post">
		<button type="submit" name="stornieren" value="2001">Stornieren</button>
	</form></td></tr>`)
	entries, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse() err=%v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].HasAccept || !entries[0].HasCancel {
		t.Fatalf("cancel-only form misclassified: %+v", entries[0])
	}
}

func TestIsLoginPage(t *testing.T) {
	login := `<form action="/login" method="post">
		<input name="username" type="text">
		<input name="password" type="password">
	</form>`
	if !IsLoginPage(login) {
		t.Fatalf("login page not detected")
	}
	if IsLoginPage(listingFixture) {
		t.Fatalf("listing misdetected as login page")
	}
	if IsLoginPage(`<input name="username">`) {
		t.Fatalf("username marker alone must not trigger")
	}
}
