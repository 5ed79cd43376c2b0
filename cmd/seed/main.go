package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func newID() string { return uuid.New().String() }

func daysAgo(d int) time.Time {
	return time.Now().UTC().AddDate(0, 0, -d)
}

func yearsAgo(y float64) time.Time {
	return time.Now().UTC().AddDate(0, 0, -int(y*365.25))
}

func randBetween(min, max int) int {
	return min + rand.Intn(max-min+1)
}

func mustJSON(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		log.Fatalf("marshal: %v", err)
	}
	return b
}

// ── main ─────────────────────────────────────────────────────────────────────

func main() {
	_ = godotenv.Load()

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		envOr("DB_HOST", "localhost"),
		envOr("DB_PORT", "5432"),
		envOr("DB_USER", "curator"),
		envOr("DB_PASSWORD", "curator"),
		envOr("DB_NAME", "curation"),
		envOr("DB_SSL_MODE", "disable"),
	)

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping: %v", err)
	}
	fmt.Println("connected to database")

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("begin tx: %v", err)
	}
	defer tx.Rollback(ctx)

	// ── clean up previous seed data ──────────────────────────────────────
	const seedCompanyID = "seed-acme"
	_, _ = tx.Exec(ctx, `DELETE FROM companies WHERE id = $1`, seedCompanyID)
	fmt.Println("cleaned previous seed data")

	// ── 1. tenant company ────────────────────────────────────────────────
	_, err = tx.Exec(ctx,
		`INSERT INTO companies (id, name, stage, industry, tech_stack_skills, ideal_candidate_traits, anti_patterns)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		seedCompanyID, "Acme Robotics", "series-a", "robotics",
		mustJSON([]string{"go", "python", "kubernetes", "postgres"}),
		"Pragmatic builders who have shipped production systems end to end and enjoy owning a problem from design to rollout.",
		"Title-chasers; candidates who have only worked at very large companies and never owned an on-call rotation.",
	)
	must(err, "create company")
	fmt.Printf("created company: %s\n", seedCompanyID)

	// ── 2. roles ─────────────────────────────────────────────────────────
	type roleDef struct {
		id, title          string
		required           []string
		preferred          []string
		minYears           *int
		location, desc     string
	}
	three, five := 3, 5
	roles := []roleDef{
		{"seed-role-backend", "Senior Backend Engineer",
			[]string{"go", "postgres"}, []string{"kubernetes", "grpc"}, &five,
			"Remote (US)", "Own the fleet-coordination services: Go, Postgres, gRPC, a lot of concurrency."},
		{"seed-role-ml", "Machine Learning Engineer",
			[]string{"python", "pytorch"}, []string{"ros", "cuda"}, &three,
			"San Francisco, CA", "Perception models for warehouse robots; training infra plus on-robot inference."},
		{"seed-role-platform", "Platform Engineer",
			[]string{"kubernetes", "terraform"}, []string{"go", "aws"}, nil,
			"Remote (US)", "Build and run the deployment platform every robot ships through."},
	}
	for _, r := range roles {
		_, err = tx.Exec(ctx,
			`INSERT INTO roles (id, title, company_id, required_skills, preferred_skills, min_years_experience, location_preference, description, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'open')`,
			r.id, r.title, seedCompanyID, mustJSON(r.required), mustJSON(r.preferred), r.minYears, r.location, r.desc,
		)
		must(err, "create role "+r.title)
	}
	fmt.Printf("created %d roles\n", len(roles))

	// ── 3. people ────────────────────────────────────────────────────────
	type experience struct {
		Title     string     `json:"Title"`
		Company   string     `json:"Company"`
		StartDate time.Time  `json:"StartDate"`
		EndDate   *time.Time `json:"EndDate"`
	}
	type education struct {
		Institution string     `json:"Institution"`
		Degree      string     `json:"Degree"`
		Field       string     `json:"Field"`
		EndDate     *time.Time `json:"EndDate"`
	}
	endOf := func(t time.Time) *time.Time { return &t }

	type personDef struct {
		id, name, title, company, location string
		linkedin, github                   string
		skills                             []string
		experience                         []experience
		education                          []education
		sources                            []string
	}

	people := []personDef{
		{"seed-p-001", "Dana Whitfield", "Staff Software Engineer", "Conveyor Labs", "Portland, OR",
			"https://linkedin.com/in/danawhitfield", "https://github.com/dwhitfield",
			[]string{"go", "postgres", "kubernetes", "grpc"},
			[]experience{
				{"Staff Software Engineer", "Conveyor Labs", yearsAgo(3), nil},
				{"Senior Software Engineer", "Parcelly", yearsAgo(7), endOf(yearsAgo(3))},
			},
			[]education{{"Oregon State University", "BS", "Computer Science", endOf(yearsAgo(9))}},
			[]string{"linkedin-sync"}},
		{"seed-p-002", "Marcus Oyelaran", "Backend Engineer", "Freightwise", "Austin, TX",
			"https://linkedin.com/in/moyelaran", "",
			[]string{"go", "redis", "mysql"},
			[]experience{
				{"Backend Engineer", "Freightwise", yearsAgo(2.5), nil},
				{"Software Engineer", "Shiply", yearsAgo(5.5), endOf(yearsAgo(2.5))},
			},
			nil,
			[]string{"csv-import"}},
		{"seed-p-003", "Priya Raghunathan", "ML Engineer", "Vision Dynamics", "San Jose, CA",
			"https://linkedin.com/in/priyaraghunathan", "https://github.com/praghu",
			[]string{"python", "pytorch", "cuda", "ros"},
			[]experience{
				{"ML Engineer", "Vision Dynamics", yearsAgo(4), nil},
				{"Research Assistant", "UC Berkeley", yearsAgo(6), endOf(yearsAgo(4))},
			},
			[]education{{"UC Berkeley", "MS", "EECS", endOf(yearsAgo(6))}},
			[]string{"linkedin-sync"}},
		{"seed-p-004", "Tomás Herrera", "DevOps Engineer", "Cloudwright", "Denver, CO",
			"", "https://github.com/therrera",
			[]string{"kubernetes", "terraform", "aws", "go"},
			[]experience{
				{"DevOps Engineer", "Cloudwright", yearsAgo(3.5), nil},
			},
			nil,
			[]string{"external-search"}},
		{"seed-p-005", "Elaine Zhou", "Software Engineer", "Pathfinder AI", "Seattle, WA",
			"https://linkedin.com/in/elainezhou", "",
			[]string{"python", "tensorflow"},
			[]experience{
				{"Software Engineer", "Pathfinder AI", yearsAgo(1.5), nil},
			},
			[]education{{"University of Washington", "BS", "Computer Science", endOf(yearsAgo(2))}},
			[]string{"linkedin-sync", "csv-import"}},
		{"seed-p-006", "Rob Calloway", "Engineering Manager", "Gridline", "Chicago, IL",
			"https://linkedin.com/in/robcalloway", "",
			[]string{"java", "spring"},
			[]experience{
				{"Engineering Manager", "Gridline", yearsAgo(2), nil},
				{"Senior Software Engineer", "Gridline", yearsAgo(6), endOf(yearsAgo(2))},
			},
			nil,
			[]string{"csv-import"}},
	}

	for _, p := range people {
		createdAt := daysAgo(randBetween(30, 120))
		_, err = tx.Exec(ctx,
			`INSERT INTO people (id, company_id, name, title, company, location, linkedin_url, github_url,
			                     skills, experience, education, sources, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`,
			p.id, seedCompanyID, p.name, p.title, p.company, p.location, p.linkedin, p.github,
			mustJSON(p.skills), mustJSON(p.experience), mustJSON(p.education), mustJSON(p.sources), createdAt,
		)
		must(err, "create person "+p.name)
	}
	fmt.Printf("created %d people\n", len(people))

	// ── commit ───────────────────────────────────────────────────────────
	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("commit: %v", err)
	}

	fmt.Println("\n✓ seed completed successfully!")
	fmt.Printf("  curate with: company_id=%s role_id=%s\n", seedCompanyID, roles[0].id)
}

func must(err error, msg string) {
	if err != nil {
		log.Fatalf("%s: %v", msg, err)
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
