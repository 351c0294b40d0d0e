/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package input

import "testing"

func TestCheckTextRejectsHostileInput(t *testing.T) {
	v := NewValidator(nil)
	hostile := []string{
		"'; DROP TABLE users; --",
		"1' OR '1'='1",
		"SELECT password FROM users",
		`{"$где": 1, "$ne": null}`,
		"<script>alert(1)</script>",
		"javascript:alert(1)",
		`<img onerror=alert(1)>`,
		"../../etc/passwd",
		"name; rm -rf /",
		"$(reboot)",
		"a && b",
	}
	for _, s := range hostile {
		if ok, _ := v.CheckText("name", s, "tester"); ok {
			t.Errorf("accepted hostile input %q", s)
		}
	}
}

func TestCheckTextAcceptsNormalInput(t *testing.T) {
	v := NewValidator(nil)
	fine := []string{
		"Giovanni Rossi",
		"My IPTV subscription expired, please help",
		"user_2026",
		"The update from last week works",
		"O'Brien", // An apostrophe alone is not an injection
	}
	for _, s := range fine {
		if ok, msg := v.CheckText("name", s, "tester"); !ok {
			t.Errorf("rejected normal input %q: %s", s, msg)
		}
	}
}

func TestSanitizeEscapesMarkup(t *testing.T) {
	v := NewValidator(nil)
	got := v.Sanitize(`<b>"hi" & 'bye'</b>`)
	if got != "&lt;b&gt;&#34;hi&#34; &amp; &#39;bye&#39;&lt;/b&gt;" {
		t.Errorf("sanitized to %q", got)
	}
}

func TestValidMAC(t *testing.T) {
	good := []string{"00:1A:2B:3C:4D:5E", "00-1a-2b-3c-4d-5e", "FF:FF:FF:FF:FF:FF"}
	for _, m := range good {
		if !ValidMAC(m) {
			t.Errorf("rejected valid MAC %q", m)
		}
	}
	bad := []string{"", "00:1A:2B:3C:4D", "00:1A:2B:3C:4D:5E:6F", "GG:1A:2B:3C:4D:5E", "001A2B3C4D5E"}
	for _, m := range bad {
		if ValidMAC(m) {
			t.Errorf("accepted invalid MAC %q", m)
		}
	}
}

func TestValidURL(t *testing.T) {
	if !ValidURL("http://example.com/line") || !ValidURL("https://example.com:8080/get.php?user=a") {
		t.Error("rejected valid URL")
	}
	for _, u := range []string{"", "ftp://example.com", "example.com", "javascript:alert(1)", "http://"} {
		if ValidURL(u) {
			t.Errorf("accepted invalid URL %q", u)
		}
	}
}
