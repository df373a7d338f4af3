package cli

import (
	"quiz-battle-service/internal/domain"
	"quiz-battle-service/internal/infra/memory"
)

// demoAccounts and demoTasks seed the in-memory collaborators when no database
// is configured.
func demoAccounts() []memory.Account {
	return []memory.Account{
		{Token: "demo-token-1", Identity: domain.Identity{ID: 1, Name: "alice", Rating: 1000}},
		{Token: "demo-token-2", Identity: domain.Identity{ID: 2, Name: "bob", Rating: 1000}},
		{Token: "demo-token-3", Identity: domain.Identity{ID: 3, Name: "carol", Rating: 1000}},
	}
}

func demoTasks() []domain.Task {
	return []domain.Task{
		{ID: 1, Level: 1, Category: "algebra", Subcategory: []string{"equations"}, Condition: "Solve x + 3 = 5.", Answer: "2"},
		{ID: 2, Level: 1, Category: "arithmetic", Subcategory: []string{"fractions"}, Condition: "What is 1/2 + 1/4?", Answer: "3/4"},
		{ID: 3, Level: 2, Category: "algebra", Subcategory: []string{"equations"}, Condition: "Solve 3x - 4 = 11.", Answer: "5"},
		{ID: 4, Level: 2, Category: "geometry", Subcategory: []string{"triangles"}, Condition: "Sum of the interior angles of a triangle, in degrees?", Answer: "180"},
		{ID: 5, Level: 3, Category: "algebra", Subcategory: []string{"quadratics"}, Condition: "Positive root of x^2 - 9 = 0?", Answer: "3"},
		{ID: 6, Level: 3, Category: "geometry", Subcategory: []string{"circles"}, Condition: "Area of a circle with radius 1, in terms of pi?", Answer: "pi", AnswerType: "expression"},
		{ID: 7, Level: 4, Category: "number theory", Subcategory: []string{"primes"}, Condition: "Smallest prime greater than 50?", Answer: "53"},
		{ID: 8, Level: 5, Category: "combinatorics", Subcategory: []string{"counting"}, Condition: "Number of ways to arrange the letters of ABCD?", Answer: "24"},
	}
}
