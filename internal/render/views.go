package render

import (
	"fmt"
	"strings"

	"gatemaster/internal/domain"
)

const barWidth = 30

// Dashboard greets the user and lists the zones.
func (r *Renderer) Dashboard(d domain.Dashboard) {
	name := d.Username
	if name == "" {
		name = "there"
	}
	r.heading(fmt.Sprintf("Welcome back, %s!", name))
	r.printf("You're ready to start preparing. Select one of the zones below to begin.\n\n")
	zones := []struct{ name, cmd, about string }{
		{"Practice Zone", "gatemaster practice", "subject-wise quizzes with answer reveal"},
		{"Challenge Zone", "gatemaster challenges", "full length timed mock tests"},
		{"Your Analytics", "gatemaster analytics", "accuracy and activity across subjects"},
		{"Leaderboard", "gatemaster leaderboard", "challenge rankings"},
		{"Material Zone", "gatemaster materials", "notes and previous papers"},
		{"Information Zone", "gatemaster information", "exam pattern and news"},
	}
	for _, z := range zones {
		r.printf("  %-18s %-26s %s\n", r.st.accent.Sprint(z.name), z.cmd, r.st.muted.Sprint(z.about))
	}
}

// Analytics renders the summary with text bars in place of charts.
func (r *Renderer) Analytics(a domain.AnalyticsSummary) {
	r.heading("Your Analytics")
	r.printf("Overall accuracy: %s   Quizzes taken: %d\n",
		r.st.accent.Sprintf("%.1f%%", a.OverallAccuracy), a.QuizzesTaken)

	if len(a.SubjectPerformance) == 0 && len(a.RecentActivity) == 0 {
		r.printf("\n%s\n", r.st.muted.Sprint("No quizzes taken yet. Start with gatemaster practice."))
		return
	}

	if len(a.SubjectPerformance) > 0 {
		r.printf("\n%s\n", r.st.title.Sprint("Accuracy by subject"))
		for _, p := range a.SubjectPerformance {
			r.printf("  %-32s %s %5.1f%%\n", subjectLabel(p.Subject, p.SubjectName), r.st.good.Sprint(bar(p.AvgAccuracy/100, barWidth)), p.AvgAccuracy)
		}
	}

	if len(a.SubjectDistribution) > 0 {
		most := 0
		for _, c := range a.SubjectDistribution {
			most = max(most, c.Count)
		}
		r.printf("\n%s\n", r.st.title.Sprint("Quizzes per subject"))
		for _, c := range a.SubjectDistribution {
			r.printf("  %-32s %s %d\n", subjectLabel(c.Subject, c.SubjectName), r.st.info.Sprint(bar(float64(c.Count)/float64(max(most, 1)), barWidth)), c.Count)
		}
	}

	if len(a.RecentActivity) > 0 {
		r.printf("\n%s\n", r.st.title.Sprint("Recent activity"))
		for _, q := range a.RecentActivity {
			r.printf("  %s  %-6s %d/%d\n", q.Timestamp.Local().Format("2006-01-02 15:04"), q.Subject, q.Score, q.TotalMarks)
		}
	}
}

func subjectLabel(code, name string) string {
	if name == "" {
		if s, err := domain.LookupSubject(code); err == nil {
			name = s.Name
		}
	}
	if name == "" {
		return code
	}
	return name
}

// Subjects lists the practice catalogue.
func (r *Renderer) Subjects() {
	r.heading("Practice Zone")
	for _, s := range domain.Subjects {
		r.printf("  %-5s %s\n", r.st.accent.Sprint(s.Code), s.Name)
	}
	r.printf("\n%s\n", r.st.muted.Sprint("Start a quiz with: gatemaster quiz <CODE>"))
}

// Challenges lists the available mock tests.
func (r *Renderer) Challenges(list []domain.Challenge) {
	r.heading("Challenge Zone")
	if len(list) == 0 {
		r.printf("%s\n", r.st.muted.Sprint("No challenges available right now."))
		return
	}
	for _, c := range list {
		r.printf("  %s %s\n", r.st.accent.Sprintf("#%d", c.ID), c.Title)
		if c.Description != "" {
			r.printf("     %s\n", r.st.muted.Sprint(c.Description))
		}
	}
	r.printf("\n%s\n", r.st.muted.Sprint("Start one with: gatemaster challenges start <ID>"))
}

// Leaderboard renders the ranking; the caller's row is highlighted.
func (r *Renderer) Leaderboard(lb domain.Leaderboard) {
	r.heading("Leaderboard")
	if len(lb.Entries) == 0 {
		r.printf("%s\n", r.st.muted.Sprint("No rankings yet."))
	}
	self := ""
	if lb.UserRank != nil {
		self = lb.UserRank.Username
	}
	listed := false
	for _, e := range lb.Entries {
		line := fmt.Sprintf("  %4d  %-24s %s", e.Rank, e.Username, number(e.Score))
		if self != "" && e.Username == self {
			listed = true
			line = r.st.accent.Sprint(line + "  (you)")
		}
		r.printf("%s\n", line)
	}
	if lb.UserRank != nil && !listed {
		r.printf("\n%s\n", r.st.accent.Sprintf("Your rank: #%d with %s", lb.UserRank.Rank, number(lb.UserRank.Score)))
	}
}

// Materials lists study resources.
func (r *Renderer) Materials(list []domain.Material, filter string) {
	title := "Material Zone"
	if filter != "" {
		title += " (" + subjectLabel(filter, "") + ")"
	}
	r.heading(title)
	if len(list) == 0 {
		r.printf("%s\n", r.st.muted.Sprint("No materials found."))
		return
	}
	for _, m := range list {
		r.printf("  %s %s\n", r.st.accent.Sprint(m.Title), r.st.muted.Sprintf("[%s]", m.Subject))
		if m.Description != "" {
			r.printf("     %s\n", m.Description)
		}
		if m.File != "" {
			r.printf("     %s\n", r.st.info.Sprint(m.File))
		}
	}
}

// News renders the information zone feed.
func (r *Renderer) News(list []domain.NewsArticle) {
	r.heading("News & Updates")
	if len(list) == 0 {
		r.printf("%s\n", r.st.muted.Sprint("No recent news found."))
		return
	}
	for _, a := range list {
		date := ""
		if !a.PublicationDate.IsZero() {
			date = a.PublicationDate.Local().Format("2006-01-02")
		}
		r.printf("  %s  %s\n", r.st.accent.Sprint(a.Title), r.st.muted.Sprint(date))
		if a.Description != "" {
			r.printf("     %s\n", a.Description)
		}
		r.printf("     Source: %s  %s\n", a.Source, r.st.info.Sprint(a.Link))
	}
}

var examPattern = [][2]string{
	{"Mode", "Computer Based Test (CBT)"},
	{"Duration", "3 Hours (180 Minutes)"},
	{"Total Questions", "65"},
	{"Total Marks", "100"},
}

var markingScheme = [][2]string{
	{"MCQ (Multiple Choice)", "Negative marking: -1/3 for 1-mark, -2/3 for 2-mark"},
	{"MSQ (Multiple Select)", "No negative marking"},
	{"NAT (Numerical Answer)", "No negative marking"},
}

// Information prints the static exam pattern text.
func (r *Renderer) Information() {
	r.heading("GATE Exam Pattern & Structure")
	for _, row := range examPattern {
		r.printf("  %-18s %s\n", row[0]+":", row[1])
	}

	r.printf("\n%s\n", r.st.title.Sprint("Question types & marking scheme"))
	for _, row := range markingScheme {
		r.printf("  %-24s %s\n", row[0], row[1])
	}
	r.printf("  %s\n", r.st.muted.Sprint("For MSQs, you get marks ONLY if you select all correct options and no wrong options."))

	r.printf("\n%s\n", r.st.title.Sprint("Sectional distribution"))
	r.printf("  General Aptitude (GA): 10 questions for a total of 15 marks.\n")
	r.printf("  Core Subject + Engg. Maths: 55 questions for a total of 85 marks.\n")

	r.printf("\n%s\n", r.st.title.Sprint("GATE CS subjects"))
	names := make([]string, 0, len(domain.Subjects))
	for _, s := range domain.Subjects {
		names = append(names, s.Name)
	}
	r.printf("  %s\n", strings.Join(names, ", "))
}

// Landing is the view for the root route.
func (r *Renderer) Landing(authenticated bool) {
	r.heading("Welcome to GATE Master")
	r.printf("Your one-stop platform for GATE CS preparation.\n")
	if authenticated {
		r.printf("%s\n", r.st.muted.Sprint("Open your dashboard with: gatemaster dashboard"))
		return
	}
	r.printf("%s\n", r.st.muted.Sprint("Login or Register to get started: gatemaster login | gatemaster register"))
}
