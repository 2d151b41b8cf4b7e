package payme

import (
	"github.com/futapp/futapp-api/app/models"
)

type CheckPerformResult struct {
	Allow bool `json:"allow"`
}

type CreateResult struct {
	CreateTime  int64  `json:"create_time"`
	Transaction string `json:"transaction"`
	State       int    `json:"state"`
}

type PerformResult struct {
	Transaction string `json:"transaction"`
	PerformTime int64  `json:"perform_time"`
	State       int    `json:"state"`
}

type CancelResult struct {
	Transaction string `json:"transaction"`
	CancelTime  int64  `json:"cancel_time"`
	State       int    `json:"state"`
}

type CheckResult struct {
	CreateTime  int64  `json:"create_time"`
	PerformTime int64  `json:"perform_time"`
	CancelTime  int64  `json:"cancel_time"`
	Transaction string `json:"transaction"`
	State       int    `json:"state"`
	Reason      *int   `json:"reason"`
}

type StatementTransaction struct {
	ID          string            `json:"id"`
	Time        int64             `json:"time"`
	Amount      int64             `json:"amount"`
	Account     map[string]string `json:"account"`
	CreateTime  int64             `json:"create_time"`
	PerformTime int64             `json:"perform_time"`
	CancelTime  int64             `json:"cancel_time"`
	Transaction string            `json:"transaction"`
	State       int               `json:"state"`
	Reason      *int              `json:"reason"`
}

type StatementResult struct {
	Transactions []StatementTransaction `json:"transactions"`
}

func newCreateResult(tx *models.PaymentTransaction) CreateResult {
	return CreateResult{CreateTime: tx.CreateTime, Transaction: tx.ID, State: tx.ProviderState()}
}

func newPerformResult(tx *models.PaymentTransaction) PerformResult {
	return PerformResult{Transaction: tx.ID, PerformTime: tx.PerformTime, State: tx.ProviderState()}
}

func newCancelResult(tx *models.PaymentTransaction) CancelResult {
	return CancelResult{Transaction: tx.ID, CancelTime: tx.CancelTime, State: tx.ProviderState()}
}

func newCheckResult(tx *models.PaymentTransaction) CheckResult {
	return CheckResult{
		CreateTime:  tx.CreateTime,
		PerformTime: tx.PerformTime,
		CancelTime:  tx.CancelTime,
		Transaction: tx.ID,
		State:       tx.ProviderState(),
		Reason:      tx.Reason,
	}
}

func newStatementResult(txs []models.PaymentTransaction, accountField string) StatementResult {
	out := StatementResult{Transactions: make([]StatementTransaction, 0, len(txs))}
	for i := range txs {
		tx := &txs[i]
		out.Transactions = append(out.Transactions, StatementTransaction{
			ID:          tx.ProviderTransactionID,
			Time:        tx.ProviderTime,
			Amount:      tx.Amount,
			Account:     map[string]string{accountField: tx.InternalOrderID},
			CreateTime:  tx.CreateTime,
			PerformTime: tx.PerformTime,
			CancelTime:  tx.CancelTime,
			Transaction: tx.ID,
			State:       tx.ProviderState(),
			Reason:      tx.Reason,
		})
	}
	return out
}
