package testutils

// Subject is a competition theme with on-topic sentences to draw from.
type Subject struct {
	Title     string
	Topic     string
	Sentences []string
}

// Subjects are the themes sample essays are written on.
var Subjects = []Subject{
	{
		Title: "Climate Change Effects",
		Topic: "global warming",
		Sentences: []string{
			"Climate change effects are already visible in longer droughts and stronger storms.",
			"Rising sea levels threaten coastal towns that have stood for centuries.",
			"Farmers report that planting seasons now start weeks earlier than before.",
			"Melting glaciers change the flow of rivers that cities depend on for water.",
			"Warmer oceans push fish populations toward the poles, disrupting local fisheries.",
			"Heat waves strain power grids and put elderly residents at serious risk.",
			"Scientists link the frequency of wildfires to hotter and drier summers.",
			"Insurance costs climb as extreme weather damages more homes each year.",
		},
	},
	{
		Title: "The Value of Public Libraries",
		Topic: "community education",
		Sentences: []string{
			"Public libraries give every resident free access to books and learning.",
			"Many libraries now lend laptops and internet hotspots to students.",
			"Children's reading programs at the library build habits that last a lifetime.",
			"Librarians help job seekers write resumes and search for openings.",
			"The library is one of the few indoor public spaces that asks nothing of visitors.",
			"Community events at libraries connect neighbours who would otherwise never meet.",
			"Digital archives preserve local history that would be lost without them.",
			"Funding cuts force libraries to shorten hours exactly when demand is rising.",
		},
	},
	{
		Title: "Remote Work and Productivity",
		Topic: "the modern workplace",
		Sentences: []string{
			"Remote work removes the daily commute and returns hours to employees.",
			"Some teams report higher productivity when meetings move to written updates.",
			"Managers worry that remote work weakens mentoring for junior staff.",
			"Home offices blur the line between working hours and family time.",
			"Companies save on office rent but spend more on collaboration software.",
			"Productivity measures based on output reward results rather than presence.",
			"Remote hiring lets small firms recruit talent far beyond their city.",
			"Isolation remains the most common complaint among remote workers.",
		},
	},
}

// Transitions are sprinkled into well-structured essays.
var Transitions = []string{
	"However,", "Moreover,", "Furthermore,", "Consequently,", "For example,",
	"As a result,", "In addition,", "Nevertheless,", "In conclusion,",
}

// OffTopicSentences share no vocabulary with any subject.
var OffTopicSentences = []string{
	"My favourite breakfast is toast with strawberry jam.",
	"The cat slept on the windowsill all afternoon.",
	"Basketball practice was cancelled because of the gym repairs.",
	"Grandmother's garden produced enormous pumpkins this autumn.",
	"The train to the museum was crowded on Saturday morning.",
}

// Misspellings replace correct words in essays generated with errors.
var Misspellings = map[string]string{
	"already":      "allready",
	"their":        "thier",
	"receive":      "recieve",
	"residents":    "residants",
	"visible":      "visable",
	"productivity": "productivty",
	"libraries":    "libarys",
	"weakens":      "weakins",
}
