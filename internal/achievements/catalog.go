package achievements

// TriggerType selects which runtime fact an achievement threshold applies to.
type TriggerType string

const (
	TriggerXP             TriggerType = "xp"
	TriggerStreak         TriggerType = "streak"
	TriggerSpeed          TriggerType = "speed"
	TriggerPerfectGame    TriggerType = "perfect_game"
	TriggerTotalQuestions TriggerType = "total_questions"
	TriggerDaysStreak     TriggerType = "days_streak"
	// TriggerMisc marks achievements granted out of band (server events,
	// promotions). The evaluator never unlocks them.
	TriggerMisc TriggerType = "misc"
)

// Definition is one immutable catalogue entry. Threshold units depend on the
// trigger: XP points, streak length, seconds, question count or day count.
type Definition struct {
	ID          string      `json:"id"`
	Trigger     TriggerType `json:"triggerType"`
	Threshold   float64     `json:"threshold"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Icon        string      `json:"icon"`
}

// DefaultCatalog returns the production rule table. Order matters: unlocks
// are reported in catalogue order.
func DefaultCatalog() []Definition {
	return []Definition{
		{ID: "first_win", Trigger: TriggerXP, Threshold: 10, Title: "Primer Paso", Description: "Earn your first XP in the arena", Icon: "footprints"},
		{ID: "easy_master", Trigger: TriggerXP, Threshold: 1200, Title: "Calentando", Description: "Reach 1,200 total XP", Icon: "flame"},
		{ID: "xp_5000", Trigger: TriggerXP, Threshold: 5000, Title: "Veterano", Description: "Reach 5,000 total XP", Icon: "shield"},
		{ID: "streak_5", Trigger: TriggerStreak, Threshold: 5, Title: "En Racha", Description: "Answer 5 in a row correctly", Icon: "zap"},
		{ID: "streak_10", Trigger: TriggerStreak, Threshold: 10, Title: "Imparable", Description: "Answer 10 in a row correctly", Icon: "rocket"},
		{ID: "lightning", Trigger: TriggerSpeed, Threshold: 3, Title: "Relampago", Description: "Answer correctly in 3 seconds or less", Icon: "bolt"},
		{ID: "perfect_game", Trigger: TriggerPerfectGame, Threshold: 1, Title: "Partida Perfecta", Description: "Finish a run without a single mistake", Icon: "crown"},
		{ID: "questions_100", Trigger: TriggerTotalQuestions, Threshold: 100, Title: "Centurion", Description: "Answer 100 questions overall", Icon: "medal"},
		{ID: "week_streak", Trigger: TriggerDaysStreak, Threshold: 7, Title: "Semana Completa", Description: "Play 7 days in a row", Icon: "calendar"},
		{ID: "founder", Trigger: TriggerMisc, Threshold: 0, Title: "Fundador", Description: "Joined during the launch window", Icon: "star"},
	}
}
