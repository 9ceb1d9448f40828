package digest

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/acsclub/clubnews/internal/domain"
)

// Composer renders the weekly digest document. It is a pure function of its
// inputs plus the configured club name and site base URL.
type Composer struct {
	clubName    string
	siteBaseURL string
	tmpl        *template.Template
}

// NewComposer parses the digest template once.
func NewComposer(clubName, siteBaseURL string) *Composer {
	return &Composer{
		clubName:    clubName,
		siteBaseURL: strings.TrimRight(siteBaseURL, "/"),
		tmpl:        template.Must(template.New("digest").Parse(digestTemplate)),
	}
}

// Subject builds the digest subject line for one week.
func (c *Composer) Subject(week domain.WeekKey) string {
	return fmt.Sprintf("Weekly Cybersecurity Digest - Week %d, %d", week.Number, week.Year)
}

// Compose renders the digest HTML for one recipient. A category with zero
// items renders an explicit placeholder so the reader can tell a sparse week
// from a broken one.
func (c *Composer) Compose(recipientEmail string, global, regional []domain.NewsItem, week domain.WeekKey) (string, error) {
	data := digestData{
		ClubName:       c.clubName,
		SiteBaseURL:    c.siteBaseURL,
		RecipientEmail: recipientEmail,
		WeekNumber:     week.Number,
		Year:           week.Year,
		Global:         global,
		Regional:       regional,
	}

	var buf strings.Builder
	if err := c.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}
	return buf.String(), nil
}

type digestData struct {
	ClubName       string
	SiteBaseURL    string
	RecipientEmail string
	WeekNumber     int
	Year           int
	Global         []domain.NewsItem
	Regional       []domain.NewsItem
}

const digestTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Weekly Cybersecurity Digest</title>
  <style>
    body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; background-color: #0a0a0a; padding: 20px; margin: 0; }
    .container { max-width: 650px; margin: 0 auto; background: #1a1a1a; border-radius: 10px; overflow: hidden; border: 1px solid #00ff41; }
    .header { background: linear-gradient(135deg, #00ff41 0%, #00cc33 100%); color: #000; padding: 40px 30px; text-align: center; }
    .header h1 { font-size: 28px; margin: 0 0 10px 0; }
    .header p { font-size: 16px; margin: 0; opacity: 0.8; }
    .content { padding: 30px; }
    .section { margin-bottom: 40px; }
    .section-title { font-size: 22px; color: #00ff41; margin-bottom: 20px; padding-bottom: 10px; border-bottom: 3px solid #00ff41; }
    .news-card { background: #0a0a0a; border-left: 4px solid #00ff41; padding: 20px; margin-bottom: 20px; border-radius: 5px; }
    .news-title { font-size: 18px; font-weight: bold; color: #00ff41; margin-bottom: 10px; }
    .news-summary { font-size: 14px; color: #ccc; line-height: 1.6; margin-bottom: 15px; }
    .news-source { font-size: 13px; color: #888; font-style: italic; }
    .news-link { display: inline-block; background: #00ff41; color: #000; padding: 8px 20px; text-decoration: none; border-radius: 5px; font-size: 14px; font-weight: 600; }
    .footer { background: #0a0a0a; padding: 20px 30px; text-align: center; font-size: 13px; color: #666; border-top: 1px solid #00ff41; }
    .footer a { color: #00ff41; text-decoration: none; }
    .no-news { color: #888; font-style: italic; text-align: center; padding: 20px; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>{{.ClubName}}</h1>
      <p>Weekly Cybersecurity News Digest - Week {{.WeekNumber}}, {{.Year}}</p>
    </div>
    <div class="content">
      <div class="section">
        <h2 class="section-title">Global Cybersecurity News</h2>
        {{if .Global}}{{range .Global}}
        <div class="news-card">
          <div class="news-title">{{.Title}}</div>
          <div class="news-summary">{{.Summary}}</div>
          <div class="news-meta">
            <span class="news-source">{{.SourceName}}</span>
            <a href="{{.URL}}" class="news-link" target="_blank">Read More</a>
          </div>
        </div>
        {{end}}{{else}}<p class="no-news">No news available this week.</p>{{end}}
      </div>
      <div class="section">
        <h2 class="section-title">Regional Cybersecurity News</h2>
        {{if .Regional}}{{range .Regional}}
        <div class="news-card">
          <div class="news-title">{{.Title}}</div>
          <div class="news-summary">{{.Summary}}</div>
          <div class="news-meta">
            <span class="news-source">{{.SourceName}}</span>
            <a href="{{.URL}}" class="news-link" target="_blank">Read More</a>
          </div>
        </div>
        {{end}}{{else}}<p class="no-news">No news available this week.</p>{{end}}
      </div>
    </div>
    <div class="footer">
      <p>You're receiving this at {{.RecipientEmail}} because you're a member of {{.ClubName}}</p>
      <p>
        <a href="{{.SiteBaseURL}}">Visit Our Website</a> &bull;
        <a href="{{.SiteBaseURL}}/news">View All News</a>
      </p>
      <p>Stay vigilant, stay secure!</p>
    </div>
  </div>
</body>
</html>
`
