// Package patients stores the intake record of each patient of the practice.
package patients

import (
	"math"
	"strings"
	"time"

	"github.com/wolfman30/nutri-agenda/internal/forms"
	"github.com/wolfman30/nutri-agenda/internal/scheduling"
)

const (
	MinWeightKg = 40.0
	MaxWeightKg = 200.0
	MinHeightCm = 100.0
	MaxHeightCm = 230.0
)

// Patient is an intake record.
type Patient struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	BirthDate         scheduling.Date `json:"birthDate"`
	Gender            string          `json:"gender"`
	Phone             string          `json:"phone"`
	Email             string          `json:"email"`
	WeightKg          *float64        `json:"weight"`
	HeightCm          *float64        `json:"height"`
	BMI               *float64        `json:"bmi"`
	Pathologies       []string        `json:"pathologies"`
	Likes             []string        `json:"likes"`
	Allergies         []string        `json:"allergies"`
	MealSchedule      string          `json:"mealSchedule"`
	WorkSchedule      string          `json:"workSchedule"`
	TrainingFrequency string          `json:"trainingFrequency"`
	DailyWaterLiters  *float64        `json:"dailyWaterLiters"`
	AlcoholTobacco    string          `json:"alcoholTobacco"`
	SleepHours        *float64        `json:"sleepHours"`
	ShortTermGoal     string          `json:"shortTermGoal"`
	LongTermGoal      string          `json:"longTermGoal"`
	Notes             string          `json:"notes"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// withBMI fills the derived BMI and replaces nil lists with empty ones.
func (p *Patient) withBMI() *Patient {
	if p.WeightKg != nil {
		p.BMI = BMI(*p.WeightKg, p.HeightCm)
	} else {
		p.BMI = nil
	}
	if p.Pathologies == nil {
		p.Pathologies = []string{}
	}
	if p.Likes == nil {
		p.Likes = []string{}
	}
	if p.Allergies == nil {
		p.Allergies = []string{}
	}
	return p
}

// BMI is weight / (height in metres)^2 rounded to two decimals, or nil without a height.
func BMI(weightKg float64, heightCm *float64) *float64 {
	if heightCm == nil || *heightCm <= 0 {
		return nil
	}
	m := *heightCm / 100
	v := math.Round(weightKg/(m*m)*100) / 100
	return &v
}

// CreateRequest is the body of POST /api/patients.
type CreateRequest struct {
	Name              string           `json:"name"`
	BirthDate         *scheduling.Date `json:"birthDate,omitempty"`
	Gender            string           `json:"gender"`
	Phone             string           `json:"phone"`
	Email             string           `json:"email"`
	Weight            forms.Number     `json:"weight"`
	Height            forms.Number     `json:"height"`
	Pathologies       []string         `json:"pathologies"`
	Likes             []string         `json:"likes"`
	Allergies         []string         `json:"allergies"`
	MealSchedule      string           `json:"mealSchedule"`
	WorkSchedule      string           `json:"workSchedule"`
	TrainingFrequency string           `json:"trainingFrequency"`
	DailyWaterLiters  forms.Number     `json:"dailyWaterLiters"`
	AlcoholTobacco    string           `json:"alcoholTobacco"`
	SleepHours        forms.Number     `json:"sleepHours"`
	ShortTermGoal     string           `json:"shortTermGoal"`
	LongTermGoal      string           `json:"longTermGoal"`
	Notes             string           `json:"notes"`
}

// Validate checks the request
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrInvalidName
	}
	return validateMeasures(r.Weight, r.Height, r.DailyWaterLiters, r.SleepHours)
}

// Patient builds the record the request describes.
func (r *CreateRequest) Patient() Patient {
	p := Patient{
		Name:              strings.TrimSpace(r.Name),
		Gender:            r.Gender,
		Phone:             strings.TrimSpace(r.Phone),
		Email:             strings.TrimSpace(r.Email),
		WeightKg:          r.Weight.Value,
		HeightCm:          r.Height.Value,
		Pathologies:       cleanList(r.Pathologies),
		Likes:             cleanList(r.Likes),
		Allergies:         cleanList(r.Allergies),
		MealSchedule:      r.MealSchedule,
		WorkSchedule:      r.WorkSchedule,
		TrainingFrequency: r.TrainingFrequency,
		DailyWaterLiters:  r.DailyWaterLiters.Value,
		AlcoholTobacco:    r.AlcoholTobacco,
		SleepHours:        r.SleepHours.Value,
		ShortTermGoal:     r.ShortTermGoal,
		LongTermGoal:      r.LongTermGoal,
		Notes:             r.Notes,
	}
	if r.BirthDate != nil {
		p.BirthDate = *r.BirthDate
	}
	return p
}

// UpdateRequest is the body of PUT /api/patients/{id}. Absent fields are left unchanged.
type UpdateRequest struct {
	Name              *string          `json:"name,omitempty"`
	BirthDate         *scheduling.Date `json:"birthDate,omitempty"`
	Gender            *string          `json:"gender,omitempty"`
	Phone             *string          `json:"phone,omitempty"`
	Email             *string          `json:"email,omitempty"`
	Weight            forms.Number     `json:"weight"`
	Height            forms.Number     `json:"height"`
	Pathologies       *[]string        `json:"pathologies,omitempty"`
	Likes             *[]string        `json:"likes,omitempty"`
	Allergies         *[]string        `json:"allergies,omitempty"`
	MealSchedule      *string          `json:"mealSchedule,omitempty"`
	WorkSchedule      *string          `json:"workSchedule,omitempty"`
	TrainingFrequency *string          `json:"trainingFrequency,omitempty"`
	DailyWaterLiters  forms.Number     `json:"dailyWaterLiters"`
	AlcoholTobacco    *string          `json:"alcoholTobacco,omitempty"`
	SleepHours        forms.Number     `json:"sleepHours"`
	ShortTermGoal     *string          `json:"shortTermGoal,omitempty"`
	LongTermGoal      *string          `json:"longTermGoal,omitempty"`
	Notes             *string          `json:"notes,omitempty"`
}

// Validate checks every field that is present.
func (r *UpdateRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return ErrInvalidName
	}
	return validateMeasures(r.Weight, r.Height, r.DailyWaterLiters, r.SleepHours)
}

// Apply returns a copy of current with the request's fields merged in.
func (r *UpdateRequest) Apply(current Patient) Patient {
	next := current
	setString(&next.Name, r.Name)
	setString(&next.Gender, r.Gender)
	setString(&next.Phone, r.Phone)
	setString(&next.Email, r.Email)
	setString(&next.MealSchedule, r.MealSchedule)
	setString(&next.WorkSchedule, r.WorkSchedule)
	setString(&next.TrainingFrequency, r.TrainingFrequency)
	setString(&next.AlcoholTobacco, r.AlcoholTobacco)
	setString(&next.ShortTermGoal, r.ShortTermGoal)
	setString(&next.LongTermGoal, r.LongTermGoal)
	setString(&next.Notes, r.Notes)
	next.Name = strings.TrimSpace(next.Name)

	if r.BirthDate != nil {
		next.BirthDate = *r.BirthDate
	}
	setNumber(&next.WeightKg, r.Weight)
	setNumber(&next.HeightCm, r.Height)
	setNumber(&next.DailyWaterLiters, r.DailyWaterLiters)
	setNumber(&next.SleepHours, r.SleepHours)
	if r.Pathologies != nil {
		next.Pathologies = cleanList(*r.Pathologies)
	}
	if r.Likes != nil {
		next.Likes = cleanList(*r.Likes)
	}
	if r.Allergies != nil {
		next.Allergies = cleanList(*r.Allergies)
	}
	return next
}

func validateMeasures(weight, height, water, sleep forms.Number) error {
	if err := weight.CheckRange(MinWeightKg, MaxWeightKg, ErrOutOfRangeWeight); err != nil {
		return err
	}
	if err := height.CheckRange(MinHeightCm, MaxHeightCm, ErrOutOfRangeHeight); err != nil {
		return err
	}
	if err := water.CheckRange(0, 20, ErrOutOfRangeHabit); err != nil {
		return err
	}
	return sleep.CheckRange(0, 24, ErrOutOfRangeHabit)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setNumber(dst **float64, n forms.Number) {
	if n.Set {
		*dst = n.Value
	}
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
