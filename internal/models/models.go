package models

import (
	"database/sql"
	"time"
)

// User mirrors a record synced from the external identity provider.
// ID equals the provider id assigned at creation and stays stable across
// later syncs.
type User struct {
	ID        string
	ClerkID   string
	Email     string
	FirstName sql.NullString
	LastName  sql.NullString
	FullName  sql.NullString
	ImageURL  sql.NullString
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Paper is an uploaded question-paper stub. Papers live in process memory
// for the lifetime of the server only.
type Paper struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	FilePath   string    `json:"filePath,omitempty"`
	Content    string    `json:"content,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Question is a normalized QA record returned by the generation pipeline.
type Question struct {
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Importance string   `json:"importance"`
	Topic      string   `json:"topic"`
	Difficulty string   `json:"difficulty"`
	Confidence float64  `json:"confidence"`
	Flags      []string `json:"flags,omitempty"`
}

// QuestionSet groups the questions produced by one generation run.
type QuestionSet struct {
	ID          string     `json:"id"`
	Questions   []Question `json:"questions"`
	GeneratedAt time.Time  `json:"generated_at"`
}

// EditorDocument is an in-memory editable text document. Content is
// newline-delimited; Formatting applies uniformly to every paragraph.
type EditorDocument struct {
	ID         string     `json:"id"`
	Filename   string     `json:"filename"`
	Content    string     `json:"content"`
	Formatting Formatting `json:"formatting"`
	UploadedAt time.Time  `json:"uploaded_at"`
}

// Margins are page margins in inches.
type Margins struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

// Formatting is the style schema shared by the DOCX and PDF export paths.
type Formatting struct {
	FontFamily  string  `json:"fontFamily"`
	FontSize    float64 `json:"fontSize"`
	FontColor   string  `json:"fontColor"`
	Bold        bool    `json:"bold"`
	Italic      bool    `json:"italic"`
	Underline   bool    `json:"underline"`
	Margins     Margins `json:"margins"`
	Alignment   string  `json:"alignment"`
	LineSpacing float64 `json:"lineSpacing"`
	PageNumbers bool    `json:"pageNumbers"`
}

// DefaultFormatting returns the documented defaults: Arial 12pt black,
// no emphasis, left-aligned, 1.5 line spacing, 1-inch margins, no page
// numbers.
func DefaultFormatting() Formatting {
	return Formatting{
		FontFamily:  "Arial",
		FontSize:    12,
		FontColor:   "#000000",
		Margins:     Margins{Top: 1, Bottom: 1, Left: 1, Right: 1},
		Alignment:   "left",
		LineSpacing: 1.5,
	}
}

// MarginsPatch carries per-side margin overrides.
type MarginsPatch struct {
	Top    *float64 `json:"top"`
	Bottom *float64 `json:"bottom"`
	Left   *float64 `json:"left"`
	Right  *float64 `json:"right"`
}

// FormattingPatch is a partial formatting update. Nil fields leave the
// existing value untouched; margins merge per side.
type FormattingPatch struct {
	FontFamily  *string       `json:"fontFamily"`
	FontSize    *float64      `json:"fontSize"`
	FontColor   *string       `json:"fontColor"`
	Bold        *bool         `json:"bold"`
	Italic      *bool         `json:"italic"`
	Underline   *bool         `json:"underline"`
	Margins     *MarginsPatch `json:"margins"`
	Alignment   *string       `json:"alignment"`
	LineSpacing *float64      `json:"lineSpacing"`
	PageNumbers *bool         `json:"pageNumbers"`
}

// Apply merges the patch into f.
func (p *FormattingPatch) Apply(f *Formatting) {
	if p == nil {
		return
	}
	if p.FontFamily != nil {
		f.FontFamily = *p.FontFamily
	}
	if p.FontSize != nil {
		f.FontSize = *p.FontSize
	}
	if p.FontColor != nil {
		f.FontColor = *p.FontColor
	}
	if p.Bold != nil {
		f.Bold = *p.Bold
	}
	if p.Italic != nil {
		f.Italic = *p.Italic
	}
	if p.Underline != nil {
		f.Underline = *p.Underline
	}
	if p.Margins != nil {
		if p.Margins.Top != nil {
			f.Margins.Top = *p.Margins.Top
		}
		if p.Margins.Bottom != nil {
			f.Margins.Bottom = *p.Margins.Bottom
		}
		if p.Margins.Left != nil {
			f.Margins.Left = *p.Margins.Left
		}
		if p.Margins.Right != nil {
			f.Margins.Right = *p.Margins.Right
		}
	}
	if p.Alignment != nil {
		f.Alignment = *p.Alignment
	}
	if p.LineSpacing != nil {
		f.LineSpacing = *p.LineSpacing
	}
	if p.PageNumbers != nil {
		f.PageNumbers = *p.PageNumbers
	}
}
