package session

import (
	"errors"

	"github.com/medianbudget/backend/internal/budget"
	"github.com/medianbudget/backend/internal/models"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

var (
	ErrSessionNotClosed = errors.New("the session is not closed yet")
	ErrNotBudgetSession = errors.New("only budget sessions have a median budget")
)

// ComputeResult aggregates all votes of the session and stores the result.
// If the session already has a result, that one is returned unchanged.
func ComputeResult(db *gorm.DB, s models.Session) (models.Result, error) {
	if s.Kind == models.KindProposal {
		return models.Result{}, ErrNotBudgetSession
	}

	votes, err := models.SessionVotes(db, s.ID)
	if err != nil {
		return models.Result{}, err
	}

	r, err := budget.Aggregate(votes, s.Definition())
	if err != nil {
		return models.Result{}, err
	}

	return models.StoreResult(db, models.NewResult(s.ID, r))
}

// ResultFor returns the result of a closed session, computing it on first
// access.
func ResultFor(db *gorm.DB, s models.Session) (models.Result, error) {
	if s.Status != models.StatusClosed {
		return models.Result{}, ErrSessionNotClosed
	}

	result, err := models.FindResult(db, s.ID)
	if err == nil || !errors.Is(err, models.ErrResourceNotFound) {
		return result, err
	}

	return ComputeResult(db, s)
}

// TallyProposals counts the ballots for the proposals of the highest tier
// and archives all proposals of the session. A proposal wins with a strict
// majority of approvals, ties do not win.
func TallyProposals(db *gorm.DB, s models.Session) ([]models.Proposal, error) {
	var proposals []models.Proposal
	err := db.Where(&models.Proposal{SessionID: s.ID}).Order("tier DESC, created_at ASC").Find(&proposals).Error
	if err != nil {
		return nil, err
	}

	if len(proposals) == 0 {
		return proposals, nil
	}

	var ballots []models.Ballot
	err = db.Where(&models.Ballot{SessionID: s.ID}).Find(&ballots).Error
	if err != nil {
		return nil, err
	}

	top := slices.MaxFunc(proposals, func(a, b models.Proposal) int {
		return a.Tier - b.Tier
	}).Tier

	for i := range proposals {
		p := &proposals[i]
		p.Archived = true

		if p.Tier == top {
			p.YesVotes, p.NoVotes = count(ballots, *p)
			p.Winner = p.YesVotes > p.NoVotes
		}

		err = db.Model(p).Updates(map[string]any{
			"archived":  p.Archived,
			"winner":    p.Winner,
			"yes_votes": p.YesVotes,
			"no_votes":  p.NoVotes,
		}).Error
		if err != nil {
			return nil, err
		}
	}

	return proposals, nil
}

func count(ballots []models.Ballot, p models.Proposal) (yes, no int) {
	for _, b := range ballots {
		for _, c := range b.Choices {
			if c.ProposalID != p.ID {
				continue
			}

			if c.Approve {
				yes++
			} else {
				no++
			}
		}
	}

	return yes, no
}
