package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/examprep/examprep-backend/internal/config"
	"github.com/examprep/examprep-backend/internal/database"
	"github.com/examprep/examprep-backend/internal/logger"
	"github.com/examprep/examprep-backend/internal/model"
	"github.com/examprep/examprep-backend/internal/repository"
)

// seedQuestion mirrors model.Question but keeps the answer key and
// explanation readable from the seed file.
type seedQuestion struct {
	Topic         string          `json:"topic"`
	Difficulty    string          `json:"difficulty"`
	QuestionText  string          `json:"question_text"`
	CorrectAnswer string          `json:"correct_answer"`
	Options       json.RawMessage `json:"options"`
	Explanation   string          `json:"explanation"`
}

func main() {
	var file string
	flag.StringVar(&file, "file", "questions.json", "Path to questions JSON file")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	questionRepo := repository.NewQuestionRepository(pool)

	raw, err := os.ReadFile(file)
	if err != nil {
		log.Fatal().Err(err).Str("file", file).Msg("Failed to read seed file")
	}

	var seeds []seedQuestion
	if err := json.Unmarshal(raw, &seeds); err != nil {
		log.Fatal().Err(err).Msg("Invalid seed file")
	}

	fmt.Printf("=== Seeding %d Questions ===\n", len(seeds))

	successCount := 0
	for i, s := range seeds {
		q := &model.Question{
			Topic:         s.Topic,
			Difficulty:    model.Difficulty(s.Difficulty),
			QuestionText:  s.QuestionText,
			CorrectAnswer: s.CorrectAnswer,
			Options:       s.Options,
			Explanation:   s.Explanation,
		}
		if len(q.Options) == 0 {
			q.Options = json.RawMessage("null")
		}

		if err := questionRepo.Create(ctx, q); err != nil {
			log.Error().Err(err).Int("index", i).Str("topic", s.Topic).Msg("Failed to insert question")
			continue
		}
		successCount++
	}

	fmt.Printf("Done. Inserted %d/%d questions.\n", successCount, len(seeds))
}
