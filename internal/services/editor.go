package services

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"studyprep/internal/models"
)

// DocumentStore holds editable documents in process memory, demo-grade like
// the paper store.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]*models.EditorDocument
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]*models.EditorDocument)}
}

// Create registers a new document with content seeded from the filename
// and default formatting.
func (s *DocumentStore) Create(filename string) *models.EditorDocument {
	doc := &models.EditorDocument{
		ID:         uuid.NewString(),
		Filename:   filename,
		Content:    templateContent(filename),
		Formatting: models.DefaultFormatting(),
		UploadedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.docs[doc.ID] = doc
	s.mu.Unlock()

	snapshot := *doc
	return &snapshot
}

// Get returns a snapshot of one document.
func (s *DocumentStore) Get(id string) (*models.EditorDocument, bool) {
	s.mu.RLock()
	doc, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	snapshot := *doc
	return &snapshot, true
}

// Update merges a formatting patch and, when content is non-nil, replaces
// the document text. It returns the updated snapshot, or false when the id
// is unknown.
func (s *DocumentStore) Update(id string, content *string, patch *models.FormattingPatch) (*models.EditorDocument, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, false
	}
	patch.Apply(&doc.Formatting)
	if content != nil {
		doc.Content = *content
	}
	snapshot := *doc
	return &snapshot, true
}

// templateContent seeds realistic document text from filename keywords.
// Real uploads are out of scope for the demo; the editor operates on this
// placeholder content.
func templateContent(filename string) string {
	lower := strings.ToLower(filename)
	today := time.Now().Format("2006-01-02")

	switch {
	case strings.Contains(lower, "resume") || strings.Contains(lower, "cv"):
		return `RESUME

John Doe
Software Engineer
Email: john.doe@email.com
Phone: (555) 123-4567

EXPERIENCE
Senior Software Engineer at TechCorp (2020-Present)
- Developed web applications using React and Node.js
- Led a team of 5 developers
- Improved application performance by 40%

Software Engineer at StartupXYZ (2018-2020)
- Built mobile applications using React Native
- Collaborated with design team on user interfaces

EDUCATION
Bachelor of Computer Science
University of Technology (2014-2018)

SKILLS
- JavaScript, Python, Go
- React, Node.js, MongoDB
- Git, Docker, AWS`

	case strings.Contains(lower, "report") || strings.Contains(lower, "analysis"):
		return `PROJECT REPORT

Title: Analysis of Student Performance in Online Learning

ABSTRACT
This report analyzes the impact of online learning on student performance during the academic year 2023-2024. The study examines various factors affecting student engagement and academic outcomes.

METHODOLOGY
Data was collected from 500 students across different departments using:
- Online surveys and questionnaires
- Academic performance records
- Engagement metrics from learning platforms

FINDINGS
1. Student engagement decreased by 15% in online formats
2. Technical difficulties affected 30% of students
3. Self-motivated students performed better in online settings
4. Interactive content improved retention by 25%

CONCLUSION
Online learning presents both challenges and opportunities for educational institutions. Proper implementation and support systems are crucial for success.`

	case strings.Contains(lower, "letter") || strings.Contains(lower, "application"):
		return fmt.Sprintf(`APPLICATION LETTER

[Date: %s]

Dear Hiring Manager,

I am writing to express my strong interest in the Software Engineer position at your organization. With my background in computer science and hands-on experience in web development, I am confident that I would be a valuable addition to your team.

QUALIFICATIONS
- Bachelor's degree in Computer Science
- 3+ years of experience in software development
- Proficiency in React, Node.js, and Python
- Strong problem-solving and analytical skills

I am excited about the opportunity to contribute to your organization's continued success and would welcome the chance to discuss how my skills can benefit your team.

Thank you for your time and consideration.

Sincerely,
[Your Name]`, today)

	default:
		return fmt.Sprintf(`DOCUMENT: %s

This is a sample document that demonstrates the document editor.

INTRODUCTION
This document contains sample text standing in for the content of an uploaded file.

Section 1: Document Overview
Lorem ipsum dolor sit amet, consectetur adipiscing elit. Sed do eiusmod tempor incididunt ut labore et dolore magna aliqua.

Section 2: Features and Capabilities
Duis aute irure dolor in reprehenderit in voluptate velit esse cillum dolore eu fugiat nulla pariatur.

CONCLUSION
Users can apply various formatting options including font changes, alignment, spacing, and more.

---
Document Information:
- Filename: %s
- Upload Date: %s`, filename, filename, today)
	}
}
