package main

import (
	"context"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var specializations = []string{
	"general_medicine",
	"cardiology",
	"dermatology",
	"pediatrics",
	"orthopedics",
	"neurology",
	"psychiatry",
	"ophthalmology",
	"ent",
	"endocrinology",
}

const seedBatchSize = 500

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Info().Int("count", count).Msg("seeding doctors")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i := 0; i < count; i++ {
		first, last := gofakeit.FirstName(), gofakeit.LastName()
		spec := specializations[gofakeit.Number(0, len(specializations)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (first_name, last_name, email, phone, specialization)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (email) DO NOTHING
		`, first, last, fakeEmail(first, last), gofakeit.Phone(), spec)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Info().Msg("doctors seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Info().Int("count", count).Msg("seeding patients")

	for offset := 0; offset < count; offset += seedBatchSize {
		end := min(offset+seedBatchSize, count)

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			first, last := gofakeit.FirstName(), gofakeit.LastName()
			_, err := tx.Exec(ctx, `
				INSERT INTO patients (first_name, last_name, email, phone)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (email) DO NOTHING
			`, first, last, fakeEmail(first, last), gofakeit.Phone())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Info().Int("done", end).Int("total", count).Msg("patients seeded")
	}

	return nil
}

// fakeEmail keeps the unique email column from colliding on common names.
func fakeEmail(first, last string) string {
	return strings.ToLower(first+"."+last) + "." + gofakeit.LetterN(6) + "@example.com"
}
