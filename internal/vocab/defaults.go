package vocab

import "time"

// DefaultConfig returns the built-in recognition vocabulary.
func DefaultConfig() Config {
	return Config{
		Degrees: []string{
			`\bB\.?Sc\.?\b`, `\bM\.?Sc\.?\b`, `\bMBA\b`, `\bPh\.?D\.?\b`, `\bB\.?Eng\.?\b`,
			`\bM\.?Eng\.?\b`, `\bB\.?Tech\b`, `\bM\.?Tech\b`, `\bDiploma\b`, `\bHigher Diploma\b`,
		},
		DegreeKeywords: []string{"Bachelor", "Master", "PhD"},
		InstitutionHints: []string{
			"university", "institute", "college", "campus", "faculty of", "academy", "polytechnic",
		},
		Skills: []string{
			"python", "java", "c++", "c#", "javascript", "typescript", "r", "matlab", "sql",
			"html", "css", "bash", "powershell", "pandas", "numpy", "scikit-learn", "tensorflow",
			"pytorch", "keras", "opencv", "matplotlib", "plotly", "spark", "hadoop",
			"machine learning", "deep learning", "data analysis", "statistics",
		},
		Tools: []string{
			"mysql", "postgresql", "mongodb", "tableau", "power bi", "excel", "jupyter", "docker",
			"kubernetes", "aws", "azure", "gcp", "git", "github", "jenkins", "terraform",
			"ansible", "autocad",
		},
		SoftSkills: []string{
			"communication", "leadership", "teamwork", "problem solving", "analytical",
			"time management", "adaptability", "creativity", "critical thinking", "collaboration",
			"presentation", "public speaking", "decision making",
		},
		RoleTitles: []string{
			"software engineer", "data scientist", "data analyst", "data engineer",
			"business analyst", "product manager", "project manager", "research assistant",
			"teaching assistant", "developer", "consultant", "designer", "architect", "manager",
			"engineer", "analyst", "scientist", "intern",
		},
		RoleKeywords:      []string{"intern", "engineer", "scientist", "analyst"},
		InternshipMarkers: []string{"internship", "intern"},
	}
}

var monthNames = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}
