package simulate

import (
	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

// Salary generation bounds in cents per month.
const (
	salaryMinCents = 150_000
	salaryMaxCents = 1_200_000
)

// Session duration bounds in seconds. Long tails exist in production data
// but we keep the simulation inside a coffee break.
const (
	sessionMinSeconds = 60
	sessionMaxSeconds = 1_200
)

// generatePlayers creates fake accounts with gamer tags and plausible
// salaries.
func generatePlayers(n int) []Player {
	faker := gofakeit.New(0)
	players := make([]Player, n)
	for i := range players {
		players[i] = Player{
			ID:                 uuid.NewString(),
			DisplayName:        faker.Gamertag(),
			MonthlySalaryCents: int64(faker.IntRange(salaryMinCents, salaryMaxCents)),
		}
	}
	return players
}

// sessionDuration returns a plausible seat time in seconds.
func sessionDuration(faker *gofakeit.Faker) int {
	return faker.IntRange(sessionMinSeconds, sessionMaxSeconds)
}
