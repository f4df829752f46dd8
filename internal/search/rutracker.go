// Package search implements the SearchProvider adapter against a
// RuTracker-style forum tracker: form-based login with a cookie jar,
// HTML search-results scraping, and raw .torrent download.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"trackrequestd/internal/model"
	"trackrequestd/internal/trackrequest"
)

const magicLoginWord = "вход"

// Auth-state markers embedded in every page the tracker renders, used to
// tell a successful page load apart from a login wall or a captcha gate.
const (
	captchaRequiredMarker = "введите код подтверждения"
	badPasswordMarker     = "неверный пароль"
	loggedInMarker        = "log-out-icon"
)

var (
	// ErrCaptchaRequired means the tracker demanded a captcha this client
	// cannot solve; retrying the same request will not help.
	ErrCaptchaRequired = errors.New("search: captcha verification required")
	// ErrBadCredentials means the configured tracker username/password was
	// rejected outright.
	ErrBadCredentials = errors.New("search: incorrect tracker login or password")
	// ErrNotAuthenticated covers any other page that didn't render as a
	// logged-in session (cookie expired, account banned, etc).
	ErrNotAuthenticated = errors.New("search: tracker session is not authenticated")
)

// Client is the RuTracker-style SearchProvider.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
}

var _ trackrequest.SearchProvider = (*Client)(nil)

// New builds a Client with its own cookie jar; Login must be called once
// before FindAll/DownloadTorrent/CheckConnection are used.
func New(baseURL, username, password string, timeout time.Duration) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("search: build cookie jar: %w", err)
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		http: &http.Client{
			Jar:     jar,
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return errors.New("search: too many redirects")
				}
				return nil
			},
		},
	}, nil
}

// Login authenticates against the tracker's forum login form; the session
// cookie is retained by the client's jar for subsequent calls.
func (c *Client) Login(ctx context.Context) error {
	form := url.Values{}
	form.Set("login_username", c.username)
	form.Set("login_password", c.password)
	form.Set("login", magicLoginWord)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/forum/login.php", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("search: build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("search: login request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("search: read login response: %w", err)
	}
	return validateAuthState(string(body))
}

// FindAll searches the tracker and returns every eligible, ranked
// candidate in priority order (most preferred first).
func (c *Client) FindAll(ctx context.Context, query string) ([]model.TopicData, error) {
	q := url.Values{}
	q.Set("nm", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/forum/tracker.php?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("search: build search request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: search request: %w", err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("search: parse search results: %w", err)
	}

	bodyText := doc.Text()
	if err := validateAuthState(bodyText); err != nil {
		return nil, err
	}

	return parseSearchResults(doc), nil
}

// DownloadTorrent fetches the raw .torrent file bytes for one candidate.
func (c *Client) DownloadTorrent(ctx context.Context, downloadId model.DownloadId) ([]byte, error) {
	u := fmt.Sprintf("%s/forum/dl.php?t=%d", c.baseURL, downloadId)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("search: build download request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: download request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		if err := validateAuthState(string(body)); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("search: unexpected download status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("search: read torrent bytes: %w", err)
	}
	return data, nil
}

// CheckConnection verifies the session is still authenticated.
func (c *Client) CheckConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return fmt.Errorf("search: build connection check request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("search: connection check request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("search: unexpected status %d checking connection", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("search: read connection check response: %w", err)
	}
	return validateAuthState(string(body))
}

func validateAuthState(body string) error {
	if strings.Contains(body, captchaRequiredMarker) {
		return ErrCaptchaRequired
	}
	if strings.Contains(body, badPasswordMarker) {
		return ErrBadCredentials
	}
	if !strings.Contains(body, loggedInMarker) {
		return ErrNotAuthenticated
	}
	return nil
}

// parseSearchResults walks the results table and returns every row ranked
// by trackrequest.Rank, most preferred first. Rows missing an expected
// column, or that fail Eligible, are silently skipped: a malformed row is
// just one fewer candidate, not a fatal parse error.
func parseSearchResults(doc *goquery.Document) []model.TopicData {
	type scored struct {
		data     model.TopicData
		priority int
	}
	var rows []scored

	doc.Find("table.forumline tr").Each(func(i int, tr *goquery.Selection) {
		if i == 0 {
			return // header row
		}
		tds := tr.Find("td")
		if tds.Length() != 10 {
			return
		}

		categoryLink := tds.Eq(2).Find("a[href]").First()
		category := strings.ToLower(strings.TrimSpace(categoryLink.Text()))

		titleLink := tds.Eq(3).Find("a[href]").First()
		title := strings.TrimSpace(titleLink.Text())
		if !trackrequest.Eligible(title, category) {
			return
		}

		topicIdStr, ok := titleLink.Attr("data-topic_id")
		if !ok {
			return
		}
		topicId, err := strconv.ParseInt(topicIdStr, 10, 64)
		if err != nil {
			return
		}

		dlHref, ok := tds.Eq(5).Find("a[href]").First().Attr("href")
		if !ok {
			return
		}
		downloadIdStr := strings.TrimPrefix(dlHref, "dl.php?t=")
		downloadId, err := strconv.ParseInt(downloadIdStr, 10, 64)
		if err != nil {
			return
		}

		seedsStr := strings.TrimSpace(tds.Eq(6).Find("b.seedmed").First().Text())
		seeds, _ := strconv.Atoi(seedsStr)

		rows = append(rows, scored{
			data: model.TopicData{
				Title:      title,
				TopicId:    model.TopicId(topicId),
				DownloadId: model.DownloadId(downloadId),
			},
			priority: trackrequest.Rank(title, seeds),
		})
	})

	for i := 1; i < len(rows); i++ {
		j := i
		for j > 0 && rows[j-1].priority > rows[j].priority {
			rows[j-1], rows[j] = rows[j], rows[j-1]
			j--
		}
	}

	out := make([]model.TopicData, len(rows))
	for i, r := range rows {
		out[i] = r.data
	}
	return out
}
