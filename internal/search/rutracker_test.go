package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const loggedInPage = `<html><body><div class="log-out-icon"></div></body></html>`
const captchaPage = `<html><body>введите код подтверждения</body></html>`
const badPasswordPage = `<html><body>неверный пароль</body></html>`

func searchResultsPage() string {
	row := func(topicId, downloadId int, title, category, seeds string) string {
		return `<tr>
			<td></td><td></td>
			<td><a href="#">` + category + `</a></td>
			<td><a href="#" data-topic_id="` + itoa(topicId) + `">` + title + `</a></td>
			<td></td>
			<td><a href="dl.php?t=` + itoa(downloadId) + `">download</a></td>
			<td><b class="seedmed">` + seeds + `</b></td>
			<td></td><td></td><td></td>
		</tr>`
	}
	return `<html><body>` + loggedInPage + `<table class="forumline">
		<tr><td>header</td></tr>
		` + row(1, 10, "Low Seed Album [MP3 256 kbps]", "lossless music", "2") + `
		` + row(2, 20, "High Seed Album [FLAC lossless]", "lossless music", "50") + `
		` + row(3, 30, "Wrong category", "video", "100") + `
		` + row(4, 40, "Image cue release image+.cue [FLAC lossless]", "lossless music", "100") + `
	</table></body></html>`
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

func TestLoginSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(loggedInPage))
	}))
	defer srv.Close()

	c, err := New(srv.URL, "user", "pass", time.Second)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.Login(context.Background()); err != nil {
		t.Errorf("Login() error = %v", err)
	}
}

func TestLoginCaptchaRequired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(captchaPage))
	}))
	defer srv.Close()

	c, _ := New(srv.URL, "user", "pass", time.Second)
	if err := c.Login(context.Background()); err != ErrCaptchaRequired {
		t.Errorf("Login() error = %v, want ErrCaptchaRequired", err)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(badPasswordPage))
	}))
	defer srv.Close()

	c, _ := New(srv.URL, "user", "pass", time.Second)
	if err := c.Login(context.Background()); err != ErrBadCredentials {
		t.Errorf("Login() error = %v, want ErrBadCredentials", err)
	}
}

func TestFindAllRanksAndFiltersResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(searchResultsPage()))
	}))
	defer srv.Close()

	c, _ := New(srv.URL, "user", "pass", time.Second)
	results, err := c.FindAll(context.Background(), "query")
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 eligible results (wrong-category and image+.cue rows discarded), got %d: %+v", len(results), results)
	}
	if !strings.Contains(results[0].Title, "High Seed Album") {
		t.Errorf("expected the FLAC/lossless/high-seed row to rank first, got %q", results[0].Title)
	}
	if !strings.Contains(results[1].Title, "Low Seed Album") {
		t.Errorf("expected the MP3/low-seed row to rank second, got %q", results[1].Title)
	}
}

func TestFindAllNotAuthenticated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>session expired</body></html>`))
	}))
	defer srv.Close()

	c, _ := New(srv.URL, "user", "pass", time.Second)
	if _, err := c.FindAll(context.Background(), "query"); err != ErrNotAuthenticated {
		t.Errorf("FindAll() error = %v, want ErrNotAuthenticated", err)
	}
}

func TestDownloadTorrentReturnsBytes(t *testing.T) {
	want := []byte("d8:announce...e")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(want)
	}))
	defer srv.Close()

	c, _ := New(srv.URL, "user", "pass", time.Second)
	got, err := c.DownloadTorrent(context.Background(), 10)
	if err != nil {
		t.Fatalf("DownloadTorrent() error = %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("DownloadTorrent() = %q, want %q", got, want)
	}
}
