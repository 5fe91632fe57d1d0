package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rentora/applications-service/internal/models"
	"github.com/rentora/applications-service/internal/utils"
)

// ScoringService produces the five-category screening breakdown. Scoring is a
// pure function of the application contents plus the bureau's answer, so two
// runs over the same data always agree.
type ScoringService struct {
	bureau CreditBureau
}

func NewScoringService(bureau CreditBureau) *ScoringService {
	return &ScoringService{bureau: bureau}
}

// Score computes the breakdown without persisting anything.
func (s *ScoringService) Score(ctx context.Context, app *models.Application, scoredBy uuid.UUID) (*models.ScoreBreakdown, error) {
	b := &models.ScoreBreakdown{
		MaxScore: models.MaxApplicationScore,
		ScoredAt: time.Now().UTC(),
		ScoredBy: scoredBy,
	}

	b.IncomeScore = scoreIncome(app.Employment.HouseholdIncome(), &b.Flags)

	creditScore, bureauScore, err := s.scoreCredit(ctx, app, &b.Flags)
	if err != nil {
		return nil, err
	}
	b.CreditScore = creditScore
	b.CreditBureauScore = bureauScore

	b.RentalScore = scoreRentalHistory(app.RentalHistory, &b.Flags)
	b.EmploymentScore = scoreEmployment(app.Employment, &b.Flags)
	b.DocumentScore = scoreDocuments(app.Documents)

	b.Total = b.IncomeScore + b.CreditScore + b.RentalScore + b.EmploymentScore + b.DocumentScore

	utils.Logger.WithFields(logrus.Fields{
		"application_id": app.ID,
		"total":          b.Total,
		"flags":          b.Flags,
	}).Info("application scored")

	return b, nil
}

func scoreIncome(monthly float64, flags *[]string) int {
	switch {
	case monthly >= 5000:
		return 25
	case monthly >= 4000:
		return 22
	case monthly >= 3000:
		return 18
	case monthly >= 2000:
		return 12
	case monthly > 0:
		*flags = append(*flags, models.FlagLowIncome)
		return 5
	default:
		*flags = append(*flags, models.FlagNoIncomeProvided)
		return 0
	}
}

func (s *ScoringService) scoreCredit(ctx context.Context, app *models.Application, flags *[]string) (points, bureauScore int, err error) {
	if app.PersonalInfo.SSN == "" || !app.Legal.CreditCheckConsent {
		*flags = append(*flags, models.FlagNoCreditAuthorization)
		return 0, 0, nil
	}

	bureauScore, err = s.bureau.Score(ctx, app.PersonalInfo.SSN)
	if err != nil {
		return 0, 0, err
	}

	switch {
	case bureauScore >= 750:
		points = 25
	case bureauScore >= 700:
		points = 20
	case bureauScore >= 650:
		points = 15
	case bureauScore >= 600:
		points = 10
	case bureauScore >= 550:
		points = 5
	default:
		points = 0
	}
	return points, bureauScore, nil
}

func scoreRentalHistory(h models.RentalHistory, flags *[]string) int {
	years, months := utils.ParseTenure(h.Tenure)

	var pts int
	switch {
	case years >= 3:
		pts = 20
	case years == 2:
		pts = 16
	case years == 1:
		pts = 12
	case months > 0:
		pts = 8
	default:
		pts = 5
	}

	if h.PreviousEviction {
		*flags = append(*flags, models.FlagPreviousEviction)
		pts -= 15
		if pts < 0 {
			pts = 0
		}
	}
	return pts
}

func scoreEmployment(e models.Employment, flags *[]string) int {
	if e.Status == "unemployed" {
		*flags = append(*flags, models.FlagUnemployed)
		return 3
	}

	years, _ := utils.ParseTenure(e.Tenure)
	switch {
	case years >= 2:
		return 15
	case years >= 1:
		return 12
	default:
		return 8
	}
}

func scoreDocuments(docs []models.DocumentItem) int {
	var uploaded, verified int
	for _, d := range docs {
		if d.Uploaded {
			uploaded++
		}
		if d.Verified {
			verified++
		}
	}

	// Verified majority of the three-item checklist wins the full tier.
	if verified >= 2 {
		return 15
	}
	switch uploaded {
	case 3:
		return 12
	case 2:
		return 8
	case 1:
		return 5
	default:
		return 0
	}
}
