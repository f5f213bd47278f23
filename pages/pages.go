// Package pages renders the site's HTML documents.
package pages

import (
	"embed"
	"html/template"
	"io"
	"time"

	"github.com/OdyseeTeam/gondola/catalog"
	"github.com/OdyseeTeam/gondola/playback"

	"github.com/dustin/go-humanize"
)

const (
	VideoPathPrefix = "/files/video/"
	dateLayout      = "Monday, January 02, 2006 15:04:05"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Site holds the branding strings shown across pages.
type Site struct {
	Name        string
	Singular    string
	Plural      string
	Description string
	Board       string
	Email       string
	Forum       string
	URL         string
	ListTitle   string
}

type Renderer struct {
	site Site
	tmpl *template.Template
	now  func() time.Time
}

// VideoPage is everything the per-video page needs.
type VideoPage struct {
	Video        catalog.Video
	// Next is the id the ordered button leads to, shown as a preview.
	Next         string
	Mode         playback.Mode
	Count        int
	Announcement string
	Announced    bool
	Style        uint64
}

type ShellPage struct {
	Result string
	Ran    bool
}

type listPage struct {
	Count    int
	Coverage float64
	Rows     []listRow
}

type listRow struct {
	ID     string
	Source string
	Views  uint64
	Date   string
	Ago    string
}

type header struct {
	Style    uint64
	December bool
}

func New(site Site) (*Renderer, error) {
	r := &Renderer{site: site, now: time.Now}
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"site": func() Site { return r.site },
		"safe": func(s string) template.HTML { return template.HTML(s) }, // #nosec G203 announcements are admin-authored markup
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	r.tmpl = tmpl
	return r, nil
}

func (r *Renderer) header(style uint64) header {
	return header{Style: style, December: r.now().Month() == time.December}
}

func (r *Renderer) Video(w io.Writer, p VideoPage) error {
	source := "Unknown (let me know in the comments)"
	if p.Video.HasSource {
		source = p.Video.Source
	}
	return r.tmpl.ExecuteTemplate(w, "video.html", map[string]interface{}{
		"Header":     r.header(p.Style),
		"Page":       p,
		"Path":       VideoPathPrefix + p.Video.ID,
		"Source":     source,
		"PlayRandom": p.Mode == playback.Random,
		"NextURL":    "/next/" + p.Video.ID,
	})
}

// List renders the listing of every video in s, newest first.
func (r *Renderer) List(w io.Writer, s *catalog.Snapshot) error {
	now := r.now()
	p := listPage{Count: s.Len(), Coverage: s.SourceCoverage()}
	for _, v := range s.ByRecency() {
		p.Rows = append(p.Rows, listRow{
			ID:     v.ID,
			Source: v.Source,
			Views:  v.Views,
			Date:   v.Added.UTC().Format(dateLayout),
			Ago:    ago(now, v.Added),
		})
	}
	return r.tmpl.ExecuteTemplate(w, "list.html", p)
}

func (r *Renderer) Shell(w io.Writer, p ShellPage) error {
	return r.tmpl.ExecuteTemplate(w, "shell.html", map[string]interface{}{
		"Header": r.header(0),
		"Page":   p,
	})
}

func ago(now, then time.Time) string {
	if then.After(now) {
		return "File is newer than current time"
	}
	if now.Sub(then) < time.Minute {
		return "Just now"
	}
	return humanize.RelTime(then, now, "ago", "from now")
}
