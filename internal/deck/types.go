package deck

// Layout is the rendering variant of a slide. It also decides how many
// discussion points a viewer must acknowledge before moving on.
type Layout string

const (
	LayoutTitle      Layout = "title"
	LayoutBullets    Layout = "bullets"
	LayoutSplit      Layout = "split"
	LayoutPyramid    Layout = "pyramid"
	LayoutQuote      Layout = "quote"
	LayoutComparison Layout = "comparison"
	LayoutFinalScore Layout = "final_score"
)

// Valid reports whether l is one of the known layouts.
func (l Layout) Valid() bool {
	switch l {
	case LayoutTitle, LayoutBullets, LayoutSplit, LayoutPyramid,
		LayoutQuote, LayoutComparison, LayoutFinalScore:
		return true
	default:
		return false
	}
}

// BulletItem is one discussion point with an optional expanded explanation.
type BulletItem struct {
	Text   string `yaml:"text" json:"text"`
	Detail string `yaml:"detail,omitempty" json:"detail,omitempty"`
}

// Comparison holds the two columns of a comparison slide.
type Comparison struct {
	LeftTitle   string   `yaml:"left_title" json:"left_title"`
	LeftPoints  []string `yaml:"left_points" json:"left_points"`
	RightTitle  string   `yaml:"right_title" json:"right_title"`
	RightPoints []string `yaml:"right_points" json:"right_points"`
}

// QuizQuestion is a multiple-choice question attached to a slide.
type QuizQuestion struct {
	ID            string   `yaml:"id" json:"id"`
	Question      string   `yaml:"question" json:"question"`
	Options       []string `yaml:"options" json:"options"`
	CorrectAnswer int      `yaml:"correct_answer" json:"correct_answer"`
	Explanation   string   `yaml:"explanation" json:"explanation"`
}

// Slide is one static unit of lesson content.
type Slide struct {
	ID           int            `yaml:"id" json:"id"`
	Layout       Layout         `yaml:"layout" json:"layout"`
	Title        string         `yaml:"title,omitempty" json:"title,omitempty"`
	Subtitle     string         `yaml:"subtitle,omitempty" json:"subtitle,omitempty"`
	MainText     string         `yaml:"main_text,omitempty" json:"main_text,omitempty"`
	Footer       string         `yaml:"footer,omitempty" json:"footer,omitempty"`
	HighlightBox string         `yaml:"highlight_box,omitempty" json:"highlight_box,omitempty"`
	QuoteAuthor  string         `yaml:"quote_author,omitempty" json:"quote_author,omitempty"`
	Bullets      []BulletItem   `yaml:"bullets,omitempty" json:"bullets,omitempty"`
	Comparison   *Comparison    `yaml:"comparison,omitempty" json:"comparison,omitempty"`
	Quizzes      []QuizQuestion `yaml:"quizzes,omitempty" json:"quizzes,omitempty"`
}

// Deck is an ordered, immutable sequence of slides.
type Deck struct {
	ID          string  `yaml:"id" json:"id"`
	Title       string  `yaml:"title" json:"title"`
	PassPercent int     `yaml:"pass_percent,omitempty" json:"pass_percent,omitempty"`
	Slides      []Slide `yaml:"slides" json:"slides"`
}
