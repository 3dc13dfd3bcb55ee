package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"skillduel/internal/model"
)

func main() {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	mongoDB := os.Getenv("MONGO_DB")
	if mongoDB == "" {
		mongoDB = "skillduel"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer client.Disconnect(ctx)

	itemColl := client.Database(mongoDB).Collection("items")

	items := []model.Item{
		{
			ID:       primitive.NewObjectID().Hex(),
			Type:     model.ItemTypeChoice,
			Category: "interview",
			Prompt:   "A recruiter asks why you left your last role. Which answer lands best?",
			Options: []model.ItemOption{
				{ID: "a", Text: "My manager never appreciated me.", Quality: model.QualityBad},
				{ID: "b", Text: "I was ready for problems with a bigger scope than my team could offer.", Quality: model.QualityGood},
				{ID: "c", Text: "The commute was too long.", Quality: model.QualityBad},
			},
			TimeLimitMs: 20000,
		},
		{
			ID:       primitive.NewObjectID().Hex(),
			Type:     model.ItemTypeChoice,
			Category: "interview",
			Prompt:   "You don't know the answer to a technical question. What do you do?",
			Options: []model.ItemOption{
				{ID: "a", Text: "Talk through how you would find out, naming the tools you'd reach for.", Quality: model.QualityGood},
				{ID: "b", Text: "Guess confidently and move on.", Quality: model.QualityBad},
				{ID: "c", Text: "Say 'I don't know' and wait.", Quality: model.QualityBad},
			},
			TimeLimitMs: 20000,
		},
		{
			ID:            primitive.NewObjectID().Hex(),
			Type:          model.ItemTypeRating,
			Category:      "career-fit",
			Prompt:        "Candidate: enjoys deep solo focus work, dislikes frequent context switching. Role: L1 support engineer on a live incident desk. Rate the fit.",
			CorrectRating: model.RatingPoor,
			TimeLimitMs:   15000,
		},
		{
			ID:            primitive.NewObjectID().Hex(),
			Type:          model.ItemTypeRating,
			Category:      "career-fit",
			Prompt:        "Candidate: strong writer, curious generalist, happy presenting. Role: developer advocate. Rate the fit.",
			CorrectRating: model.RatingStrong,
			TimeLimitMs:   15000,
		},
		{
			ID:            primitive.NewObjectID().Hex(),
			Type:          model.ItemTypeRating,
			Category:      "career-fit",
			Prompt:        "Candidate: three years of data analysis, wants more engineering. Role: analytics engineer. Rate the fit.",
			CorrectRating: model.RatingStrong,
			TimeLimitMs:   15000,
		},
	}

	inserted := 0
	for i := range items {
		if _, err := itemColl.InsertOne(ctx, items[i]); err != nil {
			log.Error().Err(err).Str("prompt", items[i].Prompt).Msg("failed to insert item")
			continue
		}
		inserted++
	}

	fmt.Printf("seeded %d practice items into %s.items\n", inserted, mongoDB)
}
