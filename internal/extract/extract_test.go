package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/cv-parser/internal/duration"
	"github.com/spigell/cv-parser/internal/vocab"
)

const sampleCV = "Jane Doe\nMIT University\nB.Sc Computer Science\nSoftware Engineer Intern at Acme — Jan 2021 – Present\nSkills: Python, Docker"

func TestExtractSample(t *testing.T) {
	fields, err := New(nil, Options{}).Extract(context.Background(), sampleCV)
	require.NoError(t, err)

	assert.Equal(t, []string{"MIT University"}, fields.Institutions)
	assert.Equal(t, []string{"B.Sc"}, fields.Degrees)
	require.Len(t, fields.Internships, 1)
	assert.Contains(t, fields.Internships[0], "Intern")
	assert.Equal(t, []string{"Python"}, fields.Skills)
	assert.Equal(t, []string{"Docker"}, fields.Tools)
	assert.Equal(t, "Software Engineer Intern at Acme", fields.CurrentRole)
	assert.Equal(t, []string{"Software Engineer Intern at Acme — Jan 2021 – Present"}, fields.ExperienceLines)
	assert.Equal(t, []duration.Span{{Start: "Jan 2021", End: "Present"}}, fields.Spans)
}

func TestExtractEmptyText(t *testing.T) {
	fields := New(nil, Options{}).Fields("")
	assert.True(t, fields.IsEmpty())

	fields = New(nil, Options{}).Fields("   \n\t\n")
	assert.True(t, fields.IsEmpty())
}

func TestInstitutionStrategies(t *testing.T) {
	text := "Education\n  Graduated from   Stanford University,\tCA  \nThe University of Edinburgh\nExchange term at Polytechnic of Milan"

	tests := []struct {
		name     string
		strategy InstitutionStrategy
		expect   []string
	}{
		{
			name:     "line",
			strategy: InstitutionsByLine,
			expect: []string{
				"Graduated from Stanford University, CA",
				"The University of Edinburgh",
				"Exchange term at Polytechnic of Milan",
			},
		},
		{
			name:     "pattern",
			strategy: InstitutionsByPattern,
			expect: []string{
				"University of Edinburgh",
				"Stanford University, CA",
				"The University of Edinburgh",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := New(nil, Options{Institutions: tt.strategy}).Fields(text)
			assert.ElementsMatch(t, tt.expect, fields.Institutions)
		})
	}

	both := New(nil, Options{Institutions: InstitutionsBoth}).Fields(text)
	assert.Len(t, both.Institutions, 5)
}

func TestDegrees(t *testing.T) {
	text := "MSc Data Science, 2020\nPh.D. in Physics\nBachelor of Science in Mathematics, First Class\nHigher Diploma in IT\nPhD"

	fields := New(nil, Options{}).Fields(text)

	assert.ElementsMatch(t, []string{
		"MSc",
		"Ph.D",
		"Diploma",
		"Higher Diploma",
		"PhD",
		"Bachelor of Science in Mathematics",
	}, fields.Degrees)
}

func TestDegreesKeepAbbreviationAndClause(t *testing.T) {
	fields := New(nil, Options{}).Fields("PhD in Physics, 2018")

	assert.ElementsMatch(t, []string{"PhD", "PhD in Physics"}, fields.Degrees)
}

func TestTermsDedupIsCaseSensitive(t *testing.T) {
	text := "Python, python\nPYTHON; Docker / docker"

	fields := New(nil, Options{}).Fields(text)

	assert.Equal(t, []string{"Python", "python", "PYTHON"}, fields.Skills)
	assert.Equal(t, []string{"Docker", "docker"}, fields.Tools)

	logical := 0
	seen := map[string]bool{}
	for _, s := range fields.Skills {
		lower := strings.ToLower(s)
		if !seen[lower] {
			seen[lower] = true
			logical++
		}
	}
	assert.Equal(t, 1, logical)
}

func TestTermStrategies(t *testing.T) {
	text := "Built dashboards in Power BI and wrangled data with pandas.\nCore: R, Leadership"

	tokens := New(nil, Options{Terms: TermsByToken}).Fields(text)
	assert.Equal(t, []string{"R", "Leadership"}, tokens.Skills)
	assert.Empty(t, tokens.Tools)

	whole := New(nil, Options{Terms: TermsByText}).Fields(text)
	assert.ElementsMatch(t, []string{"pandas", "Leadership"}, whole.Skills)
	assert.Equal(t, []string{"Power BI"}, whole.Tools)

	both := New(nil, Options{Terms: TermsBoth}).Fields(text)
	assert.ElementsMatch(t, []string{"R", "Leadership", "pandas"}, both.Skills)
	assert.Equal(t, []string{"Power BI"}, both.Tools)
}

func TestInternshipsKeepLinesVerbatim(t *testing.T) {
	text := "  Data Intern, Foo Ltd (2019)\r\nInternational exposure\nSummer internship at Bar  "

	fields := New(nil, Options{}).Fields(text)

	assert.Equal(t, []string{"  Data Intern, Foo Ltd (2019)", "Summer internship at Bar  "}, fields.Internships)
}

func TestCurrentRole(t *testing.T) {
	tests := []struct {
		name   string
		opts   Options
		text   string
		expect string
	}{
		{
			name:   "shape",
			text:   "Senior Data Analyst @ Globex Corp, 2021 - current",
			expect: "Senior Data Analyst at Globex Corp",
		},
		{
			name:   "title on ongoing line",
			text:   "2020 – Present\nProduct Manager, Initech",
			expect: "",
		},
		{
			name:   "title fallback",
			text:   "Product Manager, Initech (2020 – Present)",
			expect: "Product Manager",
		},
		{
			name:   "no role",
			text:   "Hobbies: chess",
			expect: "",
		},
		{
			name:   "titles strategy",
			opts:   Options{Role: RoleByTitles},
			text:   "Data Scientist at A\nConsultant at B\ndata scientist again",
			expect: "Data Scientist, Consultant, data scientist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := New(nil, tt.opts).Fields(tt.text)
			assert.Equal(t, tt.expect, fields.CurrentRole)
		})
	}
}

func TestExperienceRequiresRoleAndRange(t *testing.T) {
	text := strings.Join([]string{
		"Data Analyst, Foo — Jan 2019 – Jan 2020",
		"B.Sc, Some University 2015 - 2019",
		"Research Scientist at Bar, Jun 2021 to Present",
		"Engineer (no dates)",
		"B.Sc, International University, 2015 - 2019",
		"B.Sc in Computer Engineering, 2015 - 2019",
		"Architecture studies, 2012 - 2014",
		"Summer Internship at Baz, Jun 2018 - Aug 2018",
	}, "\n")

	fields := New(nil, Options{}).Fields(text)

	assert.Equal(t, []string{
		"Data Analyst, Foo — Jan 2019 – Jan 2020",
		"Research Scientist at Bar, Jun 2021 to Present",
		"Summer Internship at Baz, Jun 2018 - Aug 2018",
	}, fields.ExperienceLines)
	assert.Equal(t, []duration.Span{
		{Start: "Jan 2019", End: "Jan 2020"},
		{Start: "Jun 2021", End: "Present"},
		{Start: "Jun 2018", End: "Aug 2018"},
	}, fields.Spans)
}

func TestCustomVocabulary(t *testing.T) {
	lib, err := vocab.New(vocab.DefaultConfig().Merge(vocab.Config{
		Tools:      []string{"Helm"},
		RoleTitles: []string{"SRE"},
	}))
	require.NoError(t, err)

	fields := New(lib, Options{}).Fields("SRE, Initech 2021 - Present\nTools: Helm")

	assert.Equal(t, []string{"Helm"}, fields.Tools)
	assert.Equal(t, []string{"SRE, Initech 2021 - Present"}, fields.ExperienceLines)
	assert.Equal(t, "SRE", fields.CurrentRole)
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, Options{}.Validate())
	assert.NoError(t, Options{Institutions: " Pattern ", Terms: "TOKENS", Role: "titles"}.Validate())
	assert.Error(t, Options{Institutions: "fuzzy"}.Validate())
	assert.Error(t, Options{Terms: "nlp"}.Validate())
	assert.Error(t, Options{Role: "llm"}.Validate())
}
