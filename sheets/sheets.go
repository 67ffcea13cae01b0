// Package sheets publishes an extraction grid into a newly created Google
// Sheet shared by link.
//
// It talks to the Sheets v4, Drive v3, and OAuth token endpoints directly
// over REST. Publishing is fire-and-forget: the created spreadsheet's
// lifecycle is not owned by this system after the copy URL is returned.
package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	pdfconverter "github.com/LeThienKhiem/pdf-converter"
)

// SpreadsheetTitle is the fixed title of every published spreadsheet.
const SpreadsheetTitle = "Extracted Data - InvoiceToData"

const (
	defaultSheetsBaseURL = "https://sheets.googleapis.com/v4"
	defaultDriveBaseURL  = "https://www.googleapis.com/drive/v3"
	defaultTokenURL      = "https://oauth2.googleapis.com/token"
)

// headerBandMin keeps header formatting covering at least the A-Z band even
// when the data is narrower.
const headerBandMin = 26

// Publisher creates, fills, formats, and shares spreadsheets on behalf of
// an OAuth credential (refresh token + client id/secret).
type Publisher struct {
	clientID     string
	clientSecret string
	refreshToken string
	accessToken  string

	sheetsBaseURL string
	driveBaseURL  string
	tokenURL      string
	httpClient    *http.Client
	logger        *slog.Logger
}

// New creates a Publisher. refreshToken may be empty when an access token
// is supplied via WithAccessToken; with neither, Publish fails with
// pdfconverter.ErrTokenExpired so the caller can trigger re-consent.
func New(clientID, clientSecret, refreshToken string, opts ...Option) *Publisher {
	p := &Publisher{
		clientID:      clientID,
		clientSecret:  clientSecret,
		refreshToken:  refreshToken,
		sheetsBaseURL: defaultSheetsBaseURL,
		driveBaseURL:  defaultDriveBaseURL,
		tokenURL:      defaultTokenURL,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	return p
}

// Publish writes the grid into a new spreadsheet and returns its
// "make a copy" URL. Null cells become empty strings (the Sheets API has no
// null-cell concept). An empty grid is a hard failure.
//
// If any call fails with a credential-expiry signature, the refresh token
// is exchanged once for a fresh access token and the entire sequence is
// rerun exactly once; a second expiry surfaces as ErrTokenExpired.
func (p *Publisher) Publish(ctx context.Context, g pdfconverter.Grid) (string, error) {
	values := g.SheetValues()
	if len(values) == 0 {
		return "", pdfconverter.ErrNothingToPublish
	}
	if p.clientID == "" || p.clientSecret == "" {
		return "", fmt.Errorf("missing Google OAuth client credentials")
	}

	token := p.accessToken
	if token == "" {
		if p.refreshToken == "" {
			return "", pdfconverter.ErrTokenExpired
		}
		t, err := p.refreshAccessToken(ctx)
		if err != nil {
			return "", err
		}
		token = t
	}

	copyURL, err := p.run(ctx, token, values, g.ColumnCount())
	if err == nil {
		return copyURL, nil
	}
	if !pdfconverter.IsTokenExpired(err) {
		return "", err
	}
	if p.refreshToken == "" {
		return "", pdfconverter.ErrTokenExpired
	}

	p.logger.Warn("google token expired, refreshing and retrying once", "error", err)
	token, rerr := p.refreshAccessToken(ctx)
	if rerr != nil {
		if pdfconverter.IsTokenExpired(rerr) {
			return "", pdfconverter.ErrTokenExpired
		}
		return "", rerr
	}
	copyURL, err = p.run(ctx, token, values, g.ColumnCount())
	if err != nil {
		if pdfconverter.IsTokenExpired(err) {
			return "", pdfconverter.ErrTokenExpired
		}
		return "", err
	}
	return copyURL, nil
}

// run executes the full create-write-format-share sequence with one token.
func (p *Publisher) run(ctx context.Context, token string, values [][]string, cols int) (string, error) {
	id, err := p.createSpreadsheet(ctx, token)
	if err != nil {
		return "", err
	}
	if err := p.writeValues(ctx, token, id, values); err != nil {
		return "", err
	}
	sheetID, err := p.firstSheetID(ctx, token, id)
	if err != nil {
		return "", err
	}
	if err := p.formatHeader(ctx, token, id, sheetID, cols); err != nil {
		return "", err
	}
	if err := p.shareByLink(ctx, token, id); err != nil {
		return "", err
	}
	p.logger.Info("spreadsheet published", "spreadsheet_id", id, "rows", len(values), "cols", cols)
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/copy", id), nil
}

func (p *Publisher) createSpreadsheet(ctx context.Context, token string) (string, error) {
	var out struct {
		SpreadsheetID string `json:"spreadsheetId"`
	}
	body := map[string]any{
		"properties": map[string]any{"title": SpreadsheetTitle},
	}
	if err := p.doJSON(ctx, token, http.MethodPost, p.sheetsBaseURL+"/spreadsheets", body, &out); err != nil {
		return "", err
	}
	if out.SpreadsheetID == "" {
		return "", fmt.Errorf("failed to create spreadsheet")
	}
	return out.SpreadsheetID, nil
}

func (p *Publisher) writeValues(ctx context.Context, token, id string, values [][]string) error {
	u := fmt.Sprintf("%s/spreadsheets/%s/values/%s?valueInputOption=USER_ENTERED",
		p.sheetsBaseURL, id, url.PathEscape("Sheet1!A1"))
	body := map[string]any{"values": values}
	return p.doJSON(ctx, token, http.MethodPut, u, body, nil)
}

func (p *Publisher) firstSheetID(ctx context.Context, token, id string) (int64, error) {
	var out struct {
		Sheets []struct {
			Properties struct {
				SheetID int64 `json:"sheetId"`
			} `json:"properties"`
		} `json:"sheets"`
	}
	if err := p.doJSON(ctx, token, http.MethodGet, p.sheetsBaseURL+"/spreadsheets/"+id, nil, &out); err != nil {
		return 0, err
	}
	if len(out.Sheets) == 0 {
		return 0, nil
	}
	return out.Sheets[0].Properties.SheetID, nil
}

// formatHeader bolds and shades row 0 across max(26, cols) columns.
func (p *Publisher) formatHeader(ctx context.Context, token, id string, sheetID int64, cols int) error {
	endColumn := headerBandMin
	if cols > endColumn {
		endColumn = cols
	}
	body := map[string]any{
		"requests": []map[string]any{
			{
				"repeatCell": map[string]any{
					"range": map[string]any{
						"sheetId":          sheetID,
						"startRowIndex":    0,
						"endRowIndex":      1,
						"startColumnIndex": 0,
						"endColumnIndex":   endColumn,
					},
					"cell": map[string]any{
						"userEnteredFormat": map[string]any{
							"backgroundColor": map[string]any{
								"red":   227.0 / 255.0,
								"green": 242.0 / 255.0,
								"blue":  253.0 / 255.0,
							},
							"textFormat": map[string]any{"bold": true},
						},
					},
					"fields": "userEnteredFormat.backgroundColor,userEnteredFormat.textFormat",
				},
			},
		},
	}
	return p.doJSON(ctx, token, http.MethodPost, p.sheetsBaseURL+"/spreadsheets/"+id+":batchUpdate", body, nil)
}

// shareByLink grants read access to anyone with the link so the recipient
// can open the "make a copy" flow.
func (p *Publisher) shareByLink(ctx context.Context, token, id string) error {
	body := map[string]any{
		"role": "reader",
		"type": "anyone",
	}
	return p.doJSON(ctx, token, http.MethodPost, p.driveBaseURL+"/files/"+id+"/permissions", body, nil)
}

// doJSON performs one authorized JSON call. Non-2xx responses become
// *pdfconverter.ErrHTTP so credential-expiry signatures are classifiable.
func (p *Publisher) doJSON(ctx context.Context, token, method, u string, in, out any) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = strings.NewReader(string(payload))
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &pdfconverter.ErrHTTP{Status: resp.StatusCode, Body: string(respBody)}
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}

// refreshAccessToken exchanges the refresh token for a fresh access token.
func (p *Publisher) refreshAccessToken(ctx context.Context) (string, error) {
	form := url.Values{
		"client_id":     {p.clientID},
		"client_secret": {p.clientSecret},
		"refresh_token": {p.refreshToken},
		"grant_type":    {"refresh_token"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}

	var data struct {
		AccessToken      string `json:"access_token"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(respBody, &data); err != nil {
		return "", fmt.Errorf("parse token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || data.AccessToken == "" {
		msg := data.ErrorDescription
		if msg == "" {
			msg = data.Error
		}
		if msg == "" {
			msg = resp.Status
		}
		// Keeps the invalid_grant signature visible to IsTokenExpired.
		return "", fmt.Errorf("refresh access token: %s", msg)
	}
	return data.AccessToken, nil
}
