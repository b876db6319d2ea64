package models

// LevelThreshold maps the minimum experience to a level label.
type LevelThreshold struct {
	MinExperience int64
	Label         string
}

// Levels is ordered ascending by MinExperience.
var Levels = []LevelThreshold{
	{0, "Nováčik"},
	{10, "Zvedavec"},
	{20, "Prieskumník"},
	{30, "Mladý majster"},
	{40, "Dobrodruh"},
	{60, "Hľadač pokladov"},
	{80, "Mladý hrdina"},
	{100, "Majster kŕmenia"},
	{120, "Veterán"},
	{150, "Legendu zvieraťa"},
}

// LevelFor returns the label of the highest threshold not above experience.
func LevelFor(experience int64) string {
	label := Levels[0].Label
	for _, l := range Levels {
		if experience < l.MinExperience {
			break
		}
		label = l.Label
	}
	return label
}

// NextLevel returns the label following the current one and how much
// experience is still missing. ok is false at the top level.
func NextLevel(experience int64) (label string, remaining int64, ok bool) {
	for _, l := range Levels {
		if l.MinExperience > experience {
			return l.Label, l.MinExperience - experience, true
		}
	}
	return "", 0, false
}
