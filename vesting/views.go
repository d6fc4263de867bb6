package vesting

// The views render amounts as decimal strings. They are what the chaincode
// returns and what vestingctl prints.

type LockPlanView struct {
	ID           uint64 `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	MaxPlanTotal string `json:"maxPlanTotal" yaml:"maxPlanTotal"`
	Total        string `json:"total" yaml:"total"`
	Locked       string `json:"locked" yaml:"locked"`
	Withdrawn    string `json:"withdrawn" yaml:"withdrawn"`
	StartPercent uint64 `json:"startPercent" yaml:"startPercent"`
	StartDelay   uint64 `json:"startDelay" yaml:"startDelay"`
	NextPercent  uint64 `json:"nextPercent" yaml:"nextPercent"`
	NextDelay    uint64 `json:"nextDelay" yaml:"nextDelay"`
}

func (plan LockPlan) View() LockPlanView {
	return LockPlanView{
		ID:           plan.ID,
		Name:         plan.Name,
		MaxPlanTotal: plan.MaxPlanTotal.String(),
		Total:        plan.Total.String(),
		Locked:       plan.Locked.String(),
		Withdrawn:    plan.Withdrawn.String(),
		StartPercent: plan.StartPercent,
		StartDelay:   plan.StartDelay,
		NextPercent:  plan.NextPercent,
		NextDelay:    plan.NextDelay,
	}
}

type LockInfoView struct {
	AfterReleaseTime uint64 `json:"afterReleaseTime" yaml:"afterReleaseTime"`
	UnlockPercent    uint64 `json:"unlockPercent" yaml:"unlockPercent"`
	NextUnlockTime   uint64 `json:"nextUnlockTime" yaml:"nextUnlockTime"`
	Total            string `json:"total" yaml:"total"`
	TotalUnlock      string `json:"totalUnlock" yaml:"totalUnlock"`
	Withdrawn        string `json:"withdrawn" yaml:"withdrawn"`
	PendingUnlock    string `json:"pendingUnlock" yaml:"pendingUnlock"`
}

func (info LockInfo) View() LockInfoView {
	return LockInfoView{
		AfterReleaseTime: info.AfterReleaseTime,
		UnlockPercent:    info.UnlockPercent,
		NextUnlockTime:   info.NextUnlockTime,
		Total:            info.Total.String(),
		TotalUnlock:      info.TotalUnlock.String(),
		Withdrawn:        info.Withdrawn.String(),
		PendingUnlock:    info.PendingUnlock.String(),
	}
}

type BalanceView struct {
	Total     string `json:"total" yaml:"total"`
	Locked    string `json:"locked" yaml:"locked"`
	Withdrawn string `json:"withdrawn" yaml:"withdrawn"`
}

func (balance Balance) View() BalanceView {
	return BalanceView{
		Total:     balance.Total.String(),
		Locked:    balance.Locked.String(),
		Withdrawn: balance.Withdrawn.String(),
	}
}

type StatsView struct {
	TotalBalance   string `json:"totalBalance" yaml:"totalBalance"`
	MaxPlansTotal  string `json:"maxPlansTotal" yaml:"maxPlansTotal"`
	Total          string `json:"total" yaml:"total"`
	TotalLocked    string `json:"totalLocked" yaml:"totalLocked"`
	TotalWithdrawn string `json:"totalWithdrawn" yaml:"totalWithdrawn"`
}

func (stats Stats) View() StatsView {
	return StatsView{
		TotalBalance:   stats.TotalBalance.String(),
		MaxPlansTotal:  stats.MaxPlansTotal.String(),
		Total:          stats.Total.String(),
		TotalLocked:    stats.TotalLocked.String(),
		TotalWithdrawn: stats.TotalWithdrawn.String(),
	}
}
