package session_test

import (
	"context"
	"sync"
	"time"

	"github.com/medianbudget/backend/internal/budget"
	"github.com/medianbudget/backend/internal/models"
	"github.com/medianbudget/backend/internal/session"
	"github.com/shopspring/decimal"
)

func (suite *TestSuiteStandard) TestPollWithoutSchedule() {
	s := suite.createActiveSession(models.Session{}, models.Phase2)

	outcome, err := suite.terminator().Poll(context.Background(), s.ID)
	suite.Require().Nil(err)
	suite.Assert().False(outcome.Executed)
	suite.Assert().Nil(outcome.SecondsRemaining)
	suite.Assert().NotEmpty(outcome.Message)
	suite.Assert().Equal(models.StatusActive, suite.reload(s).Status)
}

func (suite *TestSuiteStandard) TestScheduleAndCountdown() {
	s := suite.createActiveSession(models.Session{GracePeriod: time.Minute}, models.Phase2)
	t := suite.terminator()

	at, err := t.Schedule(context.Background(), s.ID)
	suite.Require().Nil(err)
	suite.Assert().True(now.Add(time.Minute).Equal(at))

	// Scheduling again keeps the first time
	suite.setClock(now.Add(10 * time.Second))
	again, err := t.Schedule(context.Background(), s.ID)
	suite.Require().Nil(err)
	suite.Assert().True(at.Equal(again))

	before := suite.reload(s)
	outcome, err := t.Poll(context.Background(), s.ID)
	suite.Require().Nil(err)
	suite.Assert().False(outcome.Executed)
	suite.Require().NotNil(outcome.SecondsRemaining)
	suite.Assert().Equal(int64(50), *outcome.SecondsRemaining)

	// Polling before the scheduled time is read only
	after := suite.reload(s)
	suite.Assert().Equal(before.Revision, after.Revision)
	suite.Assert().Equal(models.StatusActive, after.Status)

	suite.setClock(now.Add(time.Minute))
	outcome, err = t.Poll(context.Background(), s.ID)
	suite.Require().Nil(err)
	suite.Assert().True(outcome.Executed)

	closed := suite.reload(s)
	suite.Assert().Equal(models.StatusClosed, closed.Status)
	suite.Assert().Equal(models.PhaseClosed, closed.Phase)
	suite.Assert().Nil(closed.TerminationScheduledAt)
	suite.Require().NotNil(closed.EndedAt)
	suite.Assert().True(now.Add(time.Minute).Equal(*closed.EndedAt))

	// Further polls are no-ops
	outcome, err = t.Poll(context.Background(), s.ID)
	suite.Require().Nil(err)
	suite.Assert().False(outcome.Executed)
}

// TestConcurrentPollers verifies that of many callers polling a due
// termination at the same time, exactly one closes the session.
func (suite *TestSuiteStandard) TestConcurrentPollers() {
	s := suite.createActiveSession(models.Session{GracePeriod: time.Minute}, models.Phase2)
	suite.vote(s, "alice", 150, 250)
	suite.vote(s, "bob", 300, 100)

	t := suite.terminator()
	_, err := t.Schedule(context.Background(), s.ID)
	suite.Require().Nil(err)

	suite.setClock(now.Add(2 * time.Minute))

	const pollers = 8
	var wg sync.WaitGroup
	outcomes := make([]session.Outcome, pollers)
	errs := make([]error, pollers)

	for i := 0; i < pollers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = t.Poll(context.Background(), s.ID)
		}(i)
	}
	wg.Wait()

	executed := 0
	for i := range outcomes {
		suite.Require().Nil(errs[i])
		if outcomes[i].Executed {
			executed++
		}
	}
	suite.Assert().Equal(1, executed)
	suite.Assert().Equal(1, suite.notifier.closes())

	var results int64
	suite.Require().Nil(suite.db.Model(&models.Result{}).Where("session_id = ?", s.ID).Count(&results).Error)
	suite.Assert().Equal(int64(1), results)
	suite.Assert().Equal(models.StatusClosed, suite.reload(s).Status)
}

func (suite *TestSuiteStandard) TestCloseComputesResult() {
	s := suite.createActiveSession(models.Session{}, models.Phase2)
	suite.vote(s, "alice", 150, 250)
	suite.vote(s, "bob", 300, 100)

	outcome, err := suite.terminator().Trigger(context.Background(), s.ID)
	suite.Require().Nil(err)
	suite.Assert().True(outcome.Executed, "a session without grace period closes immediately")

	result, err := models.FindResult(suite.db, s.ID)
	suite.Require().Nil(err)
	suite.Assert().Equal(2, result.VoterCount)
	suite.Assert().True(result.BalancedExpenses.Equal(d(500)))
	suite.Assert().True(result.TotalMedianExpenses.Equal(d(400)))
	suite.Assert().True(result.MedianAllocations[0].MedianAmount.Equal(decimal.RequireFromString("281.25")))
	suite.Assert().True(result.MedianAllocations[1].MedianAmount.Equal(decimal.RequireFromString("218.75")))
}

func (suite *TestSuiteStandard) TestCloseWithoutVotes() {
	s := suite.createActiveSession(models.Session{}, models.Phase1)

	outcome, err := suite.terminator().ForceClose(context.Background(), s.ID)
	suite.Require().Nil(err)
	suite.Assert().True(outcome.Executed)

	_, err = models.FindResult(suite.db, s.ID)
	suite.Assert().ErrorIs(err, models.ErrResourceNotFound)

	_, err = session.ResultFor(suite.db, suite.reload(s))
	suite.Assert().ErrorIs(err, budget.ErrEmptyVoteSet)
}

func (suite *TestSuiteStandard) TestForceCloseClosed() {
	s := suite.createActiveSession(models.Session{}, models.Phase1)
	t := suite.terminator()

	_, err := t.ForceClose(context.Background(), s.ID)
	suite.Require().Nil(err)

	_, err = t.ForceClose(context.Background(), s.ID)
	suite.Assert().ErrorIs(err, session.ErrInvalidTransition)
}

// TestVoteAfterClose verifies that a vote checked against a snapshot taken
// while the session was open is not stored once the session has closed.
func (suite *TestSuiteStandard) TestVoteAfterClose() {
	s := suite.createActiveSession(models.Session{}, models.Phase2)
	suite.vote(s, "alice", 150, 250)

	snapshot := suite.reload(s)
	suite.Require().True(snapshot.IsOpen())

	_, err := suite.terminator().ForceClose(context.Background(), s.ID)
	suite.Require().Nil(err)

	late := models.Vote{
		SessionID:     snapshot.ID,
		ParticipantID: "bob",
		Allocations: []budget.Allocation{
			{CategoryID: "a", Amount: d(300)},
			{CategoryID: "b", Amount: d(100)},
		},
	}
	suite.Assert().ErrorIs(models.RecordVote(suite.db, &late), models.ErrSessionNotOpen)

	votes, err := models.SessionVotes(suite.db, s.ID)
	suite.Require().Nil(err)
	suite.Assert().Len(votes, 1)

	result, err := models.FindResult(suite.db, s.ID)
	suite.Require().Nil(err)
	suite.Assert().Equal(1, result.VoterCount)
}

// TestForceCloseRecoversClaimed verifies that a session which was claimed
// but never closed can be closed by an administrator.
func (suite *TestSuiteStandard) TestForceCloseRecoversClaimed() {
	s := suite.createActiveSession(models.Session{}, models.Phase2)
	suite.vote(s, "alice", 150, 250)

	err := suite.db.Model(&models.Session{}).Where("id = ?", s.ID).Updates(map[string]any{
		"phase":    models.PhaseClosed,
		"revision": s.Revision + 1,
	}).Error
	suite.Require().Nil(err)
	suite.Assert().False(suite.reload(s).IsOpen())

	outcome, err := suite.terminator().ForceClose(context.Background(), s.ID)
	suite.Require().Nil(err)
	suite.Assert().True(outcome.Executed)
	suite.Assert().Equal(models.StatusClosed, suite.reload(s).Status)
}

func (suite *TestSuiteStandard) TestScheduleInactive() {
	s := suite.createActiveSession(models.Session{}, models.Phase1)
	t := suite.terminator()

	_, err := t.ForceClose(context.Background(), s.ID)
	suite.Require().Nil(err)

	_, err = t.Schedule(context.Background(), s.ID)
	suite.Assert().ErrorIs(err, session.ErrSessionNotActive)

	outcome, err := t.Trigger(context.Background(), s.ID)
	suite.Require().Nil(err)
	suite.Assert().False(outcome.Executed)
}

func (suite *TestSuiteStandard) TestPollDue() {
	due := suite.createActiveSession(models.Session{Name: "due", GracePeriod: time.Minute}, models.Phase2)
	later := suite.createActiveSession(models.Session{Name: "later", GracePeriod: time.Hour}, models.Phase2)
	t := suite.terminator()

	_, err := t.Schedule(context.Background(), due.ID)
	suite.Require().Nil(err)
	_, err = t.Schedule(context.Background(), later.ID)
	suite.Require().Nil(err)

	suite.setClock(now.Add(5 * time.Minute))
	outcomes, err := t.PollDue(context.Background())
	suite.Require().Nil(err)
	suite.Require().Len(outcomes, 1)
	suite.Assert().Equal(due.ID, outcomes[0].SessionID)
	suite.Assert().True(outcomes[0].Executed)

	suite.Assert().Equal(models.StatusClosed, suite.reload(due).Status)
	suite.Assert().Equal(models.StatusActive, suite.reload(later).Status)
}

func (suite *TestSuiteStandard) TestRecompute() {
	s := suite.createActiveSession(models.Session{}, models.Phase2)
	suite.vote(s, "alice", 150, 250)
	t := suite.terminator()

	first, err := t.Recompute(context.Background(), s.ID)
	suite.Require().Nil(err, "recompute force closes the session")
	suite.Assert().Equal(1, first.VoterCount)
	suite.Assert().Equal(models.StatusClosed, suite.reload(s).Status)

	// A vote that reached the store late
	suite.vote(s, "bob", 300, 100)

	second, err := t.Recompute(context.Background(), s.ID)
	suite.Require().Nil(err)
	suite.Assert().Equal(2, second.VoterCount)
	suite.Assert().NotEqual(first.ID, second.ID)

	var results int64
	suite.Require().Nil(suite.db.Model(&models.Result{}).Where("session_id = ?", s.ID).Count(&results).Error)
	suite.Assert().Equal(int64(1), results)
}

func (suite *TestSuiteStandard) TestRecomputeProposal() {
	s := suite.createActiveSession(models.Session{Kind: models.KindProposal}, models.Phase2)

	_, err := suite.terminator().Recompute(context.Background(), s.ID)
	suite.Assert().ErrorIs(err, session.ErrNotBudgetSession)
}
