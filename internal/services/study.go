package services

import (
	"strings"
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"

	"studyprep/internal/models"
)

// reviewHorizon caps how many spaced repetitions the plan projects per
// question.
const reviewHorizon = 3

// StudyPlan projects spaced-repetition review dates for every question in a
// generated set.
type StudyPlan struct {
	SetID       string          `json:"setId"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Items       []StudyPlanItem `json:"items"`
}

type StudyPlanItem struct {
	Question   string      `json:"question"`
	Topic      string      `json:"topic"`
	Importance string      `json:"importance"`
	Difficulty string      `json:"difficulty"`
	Rating     string      `json:"rating"`
	Reviews    []time.Time `json:"reviews"`
}

// StudyService derives review schedules from question metadata using the
// FSRS scheduler.
type StudyService struct {
	params fsrs.Parameters
}

func NewStudyService() *StudyService {
	return &StudyService{params: fsrs.DefaultParam()}
}

// Plan simulates reviewHorizon reviews for each question, always answering
// with the rating implied by the question's difficulty and importance, and
// returns the projected due dates.
func (s *StudyService) Plan(set *models.QuestionSet) *StudyPlan {
	plan := &StudyPlan{
		SetID:       set.ID,
		GeneratedAt: set.GeneratedAt,
		Items:       make([]StudyPlanItem, 0, len(set.Questions)),
	}

	for _, q := range set.Questions {
		rating := planRating(q)
		item := StudyPlanItem{
			Question:   q.Question,
			Topic:      q.Topic,
			Importance: q.Importance,
			Difficulty: q.Difficulty,
			Rating:     ratingName(rating),
			Reviews:    make([]time.Time, 0, reviewHorizon),
		}

		card := fsrs.Card{Due: set.GeneratedAt}
		now := set.GeneratedAt
		for i := 0; i < reviewHorizon; i++ {
			info := s.params.Repeat(card, now)[rating]
			card = info.Card
			item.Reviews = append(item.Reviews, card.Due)
			now = card.Due
		}
		plan.Items = append(plan.Items, item)
	}
	return plan
}

// planRating maps question metadata to the simulated self-assessment. Hard
// questions and high-importance material schedule tighter review intervals.
func planRating(q models.Question) fsrs.Rating {
	var rating fsrs.Rating
	switch strings.ToLower(q.Difficulty) {
	case "easy":
		rating = fsrs.Easy
	case "hard":
		rating = fsrs.Hard
	default:
		rating = fsrs.Good
	}
	if strings.EqualFold(q.Importance, "high") && rating == fsrs.Good {
		rating = fsrs.Hard
	}
	return rating
}

func ratingName(r fsrs.Rating) string {
	switch r {
	case fsrs.Again:
		return "again"
	case fsrs.Hard:
		return "hard"
	case fsrs.Easy:
		return "easy"
	default:
		return "good"
	}
}
