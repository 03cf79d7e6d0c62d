package services

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"studyprep/internal/models"
)

// PaperStore holds uploaded paper stubs in process memory. State is
// demo-grade: unbounded, never evicted, and lost on restart.
type PaperStore struct {
	mu     sync.RWMutex
	papers map[string]*models.Paper
}

func NewPaperStore() *PaperStore {
	return &PaperStore{papers: make(map[string]*models.Paper)}
}

// Add registers a paper stub and assigns its id.
func (s *PaperStore) Add(filename, filePath, content string) *models.Paper {
	paper := &models.Paper{
		ID:         uuid.NewString(),
		Filename:   filename,
		FilePath:   filePath,
		Content:    content,
		UploadedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.papers[paper.ID] = paper
	s.mu.Unlock()

	snapshot := *paper
	return &snapshot
}

// Get returns a snapshot of one paper.
func (s *PaperStore) Get(id string) (*models.Paper, bool) {
	s.mu.RLock()
	paper, ok := s.papers[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	snapshot := *paper
	return &snapshot, true
}

// List returns snapshots of the papers with the given ids; an empty id list
// returns every stored paper.
func (s *PaperStore) List(ids []string) []models.Paper {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Paper
	for id, paper := range s.papers {
		if len(wanted) > 0 && !wanted[id] {
			continue
		}
		out = append(out, *paper)
	}
	return out
}

// QuestionSetStore holds generated question sets in process memory.
type QuestionSetStore struct {
	mu   sync.RWMutex
	sets map[string]*models.QuestionSet
}

func NewQuestionSetStore() *QuestionSetStore {
	return &QuestionSetStore{sets: make(map[string]*models.QuestionSet)}
}

// Add stores a new question set and assigns its id.
func (s *QuestionSetStore) Add(questions []models.Question) *models.QuestionSet {
	set := &models.QuestionSet{
		ID:          uuid.NewString(),
		Questions:   questions,
		GeneratedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.sets[set.ID] = set
	s.mu.Unlock()

	return cloneSet(set)
}

// Get returns a snapshot of one question set.
func (s *QuestionSetStore) Get(id string) (*models.QuestionSet, bool) {
	s.mu.RLock()
	set, ok := s.sets[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return cloneSet(set), true
}

func cloneSet(set *models.QuestionSet) *models.QuestionSet {
	snapshot := &models.QuestionSet{
		ID:          set.ID,
		GeneratedAt: set.GeneratedAt,
	}
	if len(set.Questions) > 0 {
		snapshot.Questions = make([]models.Question, len(set.Questions))
		copy(snapshot.Questions, set.Questions)
	}
	return snapshot
}
