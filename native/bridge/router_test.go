package bridge

import (
	"errors"
	"math/big"
	"testing"

	"creditbridge/state"
	"creditbridge/storage"
)

func newTestRouter(t *testing.T) (*Router, *Token, [20]byte, [20]byte) {
	t.Helper()
	owner := makeAddr(0x01)
	routerAddr := makeAddr(0x02)

	manager := state.NewManager(storage.NewMemDB())
	token := NewToken(owner)
	token.SetState(manager)
	if err := token.SetFees(owner, FeeConfig{}); err != nil {
		t.Fatalf("set fees: %v", err)
	}

	router := NewRouter(owner, routerAddr, token, "alpha", big.NewInt(10), big.NewInt(1000))
	router.SetState(manager)
	router.SetNowFunc(func() int64 { return 1_700_000_000 })
	if err := router.AddSupportedChain(owner, "beta"); err != nil {
		t.Fatalf("add chain: %v", err)
	}
	return router, token, owner, routerAddr
}

func fundAndApprove(t *testing.T, token *Token, owner, user, routerAddr [20]byte, amount int64) {
	t.Helper()
	if err := token.Mint(owner, user, big.NewInt(amount)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := token.Approve(user, routerAddr, big.NewInt(amount)); err != nil {
		t.Fatalf("approve: %v", err)
	}
}

func TestInitiateTransferValidatesBeforeCustody(t *testing.T) {
	router, token, owner, routerAddr := newTestRouter(t)
	sender := makeAddr(0x10)
	recipient := makeAddr(0x11)
	fundAndApprove(t, token, owner, sender, routerAddr, 5000)

	if _, err := router.InitiateCrossChainTransfer(sender, recipient, big.NewInt(5), "beta"); !errors.Is(err, ErrInvalidTransferAmount) {
		t.Fatalf("expected ErrInvalidTransferAmount below min, got %v", err)
	}
	if _, err := router.InitiateCrossChainTransfer(sender, recipient, big.NewInt(2000), "beta"); !errors.Is(err, ErrInvalidTransferAmount) {
		t.Fatalf("expected ErrInvalidTransferAmount above max, got %v", err)
	}
	if _, err := router.InitiateCrossChainTransfer(sender, recipient, big.NewInt(100), "gamma"); !errors.Is(err, ErrUnsupportedChain) {
		t.Fatalf("expected ErrUnsupportedChain, got %v", err)
	}

	balance, _ := token.BalanceOf(sender)
	if balance.Cmp(big.NewInt(5000)) != 0 {
		t.Fatalf("expected no custody movement on rejection, got balance %s", balance)
	}
}

func TestInitiateAndCompleteTransfer(t *testing.T) {
	router, token, owner, routerAddr := newTestRouter(t)
	sender := makeAddr(0x10)
	recipient := makeAddr(0x11)
	operator := makeAddr(0x20)
	fundAndApprove(t, token, owner, sender, routerAddr, 500)

	record, err := router.InitiateCrossChainTransfer(sender, recipient, big.NewInt(100), "beta")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if record.Completed {
		t.Fatalf("expected pending record not completed")
	}
	senderBalance, _ := token.BalanceOf(sender)
	if senderBalance.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("expected sender balance 400, got %s", senderBalance)
	}
	custody, _ := token.BalanceOf(routerAddr)
	if custody.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected custody 100, got %s", custody)
	}

	if err := router.CompleteCrossChainTransfer(operator, record.ID, recipient, big.NewInt(100), "alpha"); !errors.Is(err, ErrNotBridgeOperator) {
		t.Fatalf("expected ErrNotBridgeOperator, got %v", err)
	}
	if err := router.AddOperator(owner, operator); err != nil {
		t.Fatalf("add operator: %v", err)
	}
	if err := router.CompleteCrossChainTransfer(operator, record.ID, recipient, big.NewInt(99), "alpha"); !errors.Is(err, ErrTransferMismatch) {
		t.Fatalf("expected ErrTransferMismatch on wrong amount, got %v", err)
	}
	if err := router.CompleteCrossChainTransfer(operator, record.ID, makeAddr(0x12), big.NewInt(100), "alpha"); !errors.Is(err, ErrTransferMismatch) {
		t.Fatalf("expected ErrTransferMismatch on wrong recipient, got %v", err)
	}
	if err := router.CompleteCrossChainTransfer(operator, record.ID, recipient, big.NewInt(100), "alpha"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	recipientBalance, _ := token.BalanceOf(recipient)
	if recipientBalance.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected recipient balance 100, got %s", recipientBalance)
	}
	stored, err := router.PendingTransferByID(record.ID)
	if err != nil {
		t.Fatalf("pending lookup: %v", err)
	}
	if stored == nil || !stored.Completed {
		t.Fatalf("expected record marked completed, got %+v", stored)
	}

	if err := router.CompleteCrossChainTransfer(operator, record.ID, recipient, big.NewInt(100), "alpha"); !errors.Is(err, ErrTransferAlreadyCompleted) {
		t.Fatalf("expected ErrTransferAlreadyCompleted, got %v", err)
	}
}

func TestCompleteUnknownTransfer(t *testing.T) {
	router, _, owner, _ := newTestRouter(t)
	operator := makeAddr(0x20)
	if err := router.AddOperator(owner, operator); err != nil {
		t.Fatalf("add operator: %v", err)
	}
	var id [32]byte
	id[0] = 0xFF
	if err := router.CompleteCrossChainTransfer(operator, id, makeAddr(0x11), big.NewInt(10), "alpha"); !errors.Is(err, ErrTransferNotFound) {
		t.Fatalf("expected ErrTransferNotFound, got %v", err)
	}
}

func TestTransferIDsAreUniquePerSequence(t *testing.T) {
	router, token, owner, routerAddr := newTestRouter(t)
	sender := makeAddr(0x10)
	recipient := makeAddr(0x11)
	fundAndApprove(t, token, owner, sender, routerAddr, 500)

	first, err := router.InitiateCrossChainTransfer(sender, recipient, big.NewInt(100), "beta")
	if err != nil {
		t.Fatalf("first initiate: %v", err)
	}
	second, err := router.InitiateCrossChainTransfer(sender, recipient, big.NewInt(100), "beta")
	if err != nil {
		t.Fatalf("second initiate: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("expected distinct ids for identical parameters")
	}
}

func TestRemoveSupportedChainBlocksNewTransfers(t *testing.T) {
	router, token, owner, routerAddr := newTestRouter(t)
	sender := makeAddr(0x10)
	fundAndApprove(t, token, owner, sender, routerAddr, 500)

	if err := router.RemoveSupportedChain(owner, "beta"); err != nil {
		t.Fatalf("remove chain: %v", err)
	}
	if _, err := router.InitiateCrossChainTransfer(sender, makeAddr(0x11), big.NewInt(100), "beta"); !errors.Is(err, ErrUnsupportedChain) {
		t.Fatalf("expected ErrUnsupportedChain after removal, got %v", err)
	}
}

func TestFailedInitiateDoesNotAdvanceSequence(t *testing.T) {
	owner := makeAddr(0x01)
	routerAddr := makeAddr(0x02)
	manager := state.NewManager(storage.NewMemDB())
	token := NewToken(owner)
	token.SetState(manager)
	if err := token.SetFees(owner, FeeConfig{}); err != nil {
		t.Fatalf("set fees: %v", err)
	}
	router := NewRouter(owner, routerAddr, token, "alpha", big.NewInt(10), nil)
	router.SetState(manager)
	router.SetNowFunc(func() int64 { return 1_700_000_000 })
	if err := router.AddSupportedChain(owner, "beta"); err != nil {
		t.Fatalf("add chain: %v", err)
	}

	sender := makeAddr(0x10)
	recipient := makeAddr(0x11)
	if err := token.Mint(owner, sender, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, err := router.InitiateCrossChainTransfer(sender, recipient, big.NewInt(100), "beta"); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
	var seq uint64
	if _, err := manager.KVGet(transferSeqKey, &seq); err != nil {
		t.Fatalf("read sequence: %v", err)
	}
	if seq != 0 {
		t.Fatalf("expected sequence untouched after rejected pull, got %d", seq)
	}

	if err := token.Approve(sender, routerAddr, big.NewInt(100)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	record, err := router.InitiateCrossChainTransfer(sender, recipient, big.NewInt(100), "beta")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if record.ID != transferID(sender, recipient, big.NewInt(100), "beta", 1) {
		t.Fatalf("expected first transfer to use sequence 1")
	}
}
