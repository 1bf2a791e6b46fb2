package core

import (
	"sort"
	"strings"

	"github.com/srstomp/ohno/pkg/models"
)

// SkillClassifier suggests relevant skills for a task from keyword rules.
// Suggestions are advisory output for the suggest-skills hook action; no
// engine invariant depends on them, so the rule set is freely replaceable
// through project config.
type SkillClassifier struct {
	rules []models.SkillRule
}

// NewSkillClassifier creates a classifier over the given rules. A nil rule
// set falls back to the built-in defaults.
func NewSkillClassifier(rules []models.SkillRule) *SkillClassifier {
	if rules == nil {
		rules = DefaultSkillRules()
	}
	return &SkillClassifier{rules: rules}
}

// DefaultSkillRules returns the built-in keyword rules.
func DefaultSkillRules() []models.SkillRule {
	return []models.SkillRule{
		{Skill: "testing", Keywords: []string{"test", "coverage", "flaky", "regression"}},
		{Skill: "security", Keywords: []string{"auth", "token", "vulnerability", "cve", "injection"}},
		{Skill: "database", Keywords: []string{"migration", "schema", "query", "index", "sql"}},
		{Skill: "api-design", Keywords: []string{"endpoint", "api", "rest", "grpc", "contract"}},
		{Skill: "performance", Keywords: []string{"slow", "latency", "profil", "benchmark", "memory"}},
		{Skill: "refactoring", Keywords: []string{"refactor", "cleanup", "rename", "extract", "dedup"}},
	}
}

// Classify returns the skills whose keywords appear in the task title or
// notes, sorted for stable output. Matching is case-insensitive substring.
func (c *SkillClassifier) Classify(task *models.Task) []string {
	var haystack strings.Builder
	haystack.WriteString(strings.ToLower(task.Title))
	for _, note := range task.Notes {
		haystack.WriteByte(' ')
		haystack.WriteString(strings.ToLower(note.Text))
	}
	text := haystack.String()

	var skills []string
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
				skills = append(skills, rule.Skill)
				break
			}
		}
	}
	sort.Strings(skills)
	return skills
}
