package service

import (
	"context"
	"fmt"

	"github.com/agrimarket/marketplace-api/internal/models"
	apperrors "github.com/agrimarket/marketplace-api/pkg/errors"
)

// In-memory stores used by the service tests. They mirror the conditional
// update semantics of the SQL repositories: reads hand out copies, and writes
// check the stored state before applying.

type fakeProductStore struct {
	products map[string]*models.Product
}

func newFakeProductStore() *fakeProductStore {
	return &fakeProductStore{products: make(map[string]*models.Product)}
}

func (f *fakeProductStore) add(p *models.Product) {
	f.products[p.ID] = p
}

func (f *fakeProductStore) Create(ctx context.Context, product *models.Product) error {
	f.products[product.ID] = product
	return nil
}

func (f *fakeProductStore) GetByID(ctx context.Context, id string) (*models.Product, error) {
	p, ok := f.products[id]

	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("product %s not found", id))
	}

	cp := *p
	return &cp, nil
}

func (f *fakeProductStore) GetAll(ctx context.Context, limit, offset int) ([]*models.Product, error) {
	out := make([]*models.Product, 0, len(f.products))

	for _, p := range f.products {
		cp := *p
		out = append(out, &cp)
	}

	return out, nil
}

func (f *fakeProductStore) GetByFarmerID(ctx context.Context, farmerID string, limit, offset int) ([]*models.Product, error) {
	var out []*models.Product

	for _, p := range f.products {
		if p.FarmerID == farmerID {
			cp := *p
			out = append(out, &cp)
		}
	}

	return out, nil
}

func (f *fakeProductStore) Update(ctx context.Context, product *models.Product) error {
	if _, ok := f.products[product.ID]; !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("product %s not found", product.ID))
	}

	cp := *product
	f.products[product.ID] = &cp
	return nil
}

func (f *fakeProductStore) stock(id string) int {
	return f.products[id].Quantity
}

type fakeOrderStore struct {
	products *fakeProductStore
	orders   map[string]*models.Order
}

func newFakeOrderStore(products *fakeProductStore) *fakeOrderStore {
	return &fakeOrderStore{
		products: products,
		orders:   make(map[string]*models.Order),
	}
}

func (f *fakeOrderStore) CreateWithItems(ctx context.Context, order *models.Order, outboxMsg *models.OutboxMessage) error {
	// Validate every line before touching any stock
	for _, item := range order.Items {
		p, ok := f.products.products[item.ProductID]

		if !ok {
			return apperrors.NewNotFoundError(fmt.Sprintf("product %s not found", item.ProductID))
		}

		if p.Quantity < item.Quantity {
			return apperrors.NewInsufficientStockError(
				fmt.Sprintf("insufficient stock for product %s", item.ProductID))
		}
	}

	for _, item := range order.Items {
		f.products.products[item.ProductID].Quantity -= item.Quantity
	}

	cp := *order
	cp.Items = append([]*models.OrderItem(nil), order.Items...)
	f.orders[order.ID] = &cp
	return nil
}

func (f *fakeOrderStore) GetByID(ctx context.Context, id string) (*models.Order, error) {
	o, ok := f.orders[id]

	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order %s not found", id))
	}

	cp := *o
	cp.Items = append([]*models.OrderItem(nil), o.Items...)
	return &cp, nil
}

func (f *fakeOrderStore) GetAll(ctx context.Context, limit, offset int) ([]*models.Order, error) {
	out := make([]*models.Order, 0, len(f.orders))

	for _, o := range f.orders {
		cp := *o
		out = append(out, &cp)
	}

	return out, nil
}

func (f *fakeOrderStore) GetByCustomerID(ctx context.Context, customerID string, limit, offset int) ([]*models.Order, error) {
	var out []*models.Order

	for _, o := range f.orders {
		if o.CustomerID == customerID {
			cp := *o
			out = append(out, &cp)
		}
	}

	return out, nil
}

func (f *fakeOrderStore) UpdateStatus(ctx context.Context, order *models.Order, previousStatus models.OrderStatus, outboxMsg *models.OutboxMessage) error {
	stored, ok := f.orders[order.ID]

	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("order %s not found", order.ID))
	}

	if stored.Status != previousStatus {
		return apperrors.NewConflictError(
			fmt.Sprintf("order %s was modified concurrently", order.ID))
	}

	stored.Status = order.Status
	stored.TrackingNumber = order.TrackingNumber
	return nil
}

func (f *fakeOrderStore) CancelWithRestock(ctx context.Context, order *models.Order, previousStatus models.OrderStatus, outboxMsg *models.OutboxMessage) error {
	stored, ok := f.orders[order.ID]

	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("order %s not found", order.ID))
	}

	if stored.Status != previousStatus {
		return apperrors.NewConflictError(
			fmt.Sprintf("order %s was modified concurrently", order.ID))
	}

	stored.Status = models.OrderStatusCancelled

	for _, item := range stored.Items {
		if p, ok := f.products.products[item.ProductID]; ok {
			p.Quantity += item.Quantity
		}
	}

	return nil
}

func (f *fakeOrderStore) Count(ctx context.Context) (int, error) {
	return len(f.orders), nil
}

type fakeWalletStore struct {
	byUser map[string]*models.Wallet
	byID   map[string]*models.Wallet
	ledger map[string][]*models.WalletTransaction
}

func newFakeWalletStore() *fakeWalletStore {
	return &fakeWalletStore{
		byUser: make(map[string]*models.Wallet),
		byID:   make(map[string]*models.Wallet),
		ledger: make(map[string][]*models.WalletTransaction),
	}
}

func (f *fakeWalletStore) GetOrCreate(ctx context.Context, userID, currency string) (*models.Wallet, error) {
	if w, ok := f.byUser[userID]; ok {
		cp := *w
		return &cp, nil
	}

	w := models.NewWallet(userID, currency)
	f.byUser[userID] = w
	f.byID[w.ID] = w

	cp := *w
	return &cp, nil
}

func (f *fakeWalletStore) Credit(ctx context.Context, walletID string, amount float64, description string) error {
	w, ok := f.byID[walletID]

	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("wallet %s not found", walletID))
	}

	w.Balance += amount
	f.ledger[walletID] = append(f.ledger[walletID],
		models.NewWalletTransaction(walletID, models.TransactionTypeCredit, amount, description))
	return nil
}

func (f *fakeWalletStore) Debit(ctx context.Context, walletID string, amount float64, description string) error {
	w, ok := f.byID[walletID]

	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("wallet %s not found", walletID))
	}

	if w.Balance < amount {
		return apperrors.NewInsufficientFundsError(
			fmt.Sprintf("wallet balance %.2f does not cover debit of %.2f", w.Balance, amount))
	}

	w.Balance -= amount
	f.ledger[walletID] = append(f.ledger[walletID],
		models.NewWalletTransaction(walletID, models.TransactionTypeDebit, amount, description))
	return nil
}

func (f *fakeWalletStore) Transfer(ctx context.Context, fromWalletID, toWalletID string, amount float64, description string) error {
	if err := f.Debit(ctx, fromWalletID, amount, description); err != nil {
		return err
	}

	return f.Credit(ctx, toWalletID, amount, description)
}

func (f *fakeWalletStore) GetTransactions(ctx context.Context, walletID string, limit, offset int) ([]*models.WalletTransaction, error) {
	return f.ledger[walletID], nil
}

func (f *fakeWalletStore) balance(userID string) float64 {
	return f.byUser[userID].Balance
}

type fakePayoutStore struct {
	payouts map[string]*models.Payout
	wallets *fakeWalletStore
}

func newFakePayoutStore(wallets *fakeWalletStore) *fakePayoutStore {
	return &fakePayoutStore{
		payouts: make(map[string]*models.Payout),
		wallets: wallets,
	}
}

func (f *fakePayoutStore) Create(ctx context.Context, payout *models.Payout, outboxMsg *models.OutboxMessage) error {
	cp := *payout
	f.payouts[payout.ID] = &cp
	return nil
}

func (f *fakePayoutStore) GetByID(ctx context.Context, id string) (*models.Payout, error) {
	p, ok := f.payouts[id]

	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("payout %s not found", id))
	}

	cp := *p
	return &cp, nil
}

func (f *fakePayoutStore) GetAll(ctx context.Context, status models.PayoutStatus, limit, offset int) ([]*models.Payout, error) {
	var out []*models.Payout

	for _, p := range f.payouts {
		if status == "" || p.Status == status {
			cp := *p
			out = append(out, &cp)
		}
	}

	return out, nil
}

func (f *fakePayoutStore) GetByFarmerID(ctx context.Context, farmerID string, limit, offset int) ([]*models.Payout, error) {
	var out []*models.Payout

	for _, p := range f.payouts {
		if p.FarmerID == farmerID {
			cp := *p
			out = append(out, &cp)
		}
	}

	return out, nil
}

func (f *fakePayoutStore) Approve(ctx context.Context, payout *models.Payout, walletID string, outboxMsg *models.OutboxMessage) error {
	stored, ok := f.payouts[payout.ID]

	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("payout %s not found", payout.ID))
	}

	if stored.Status != models.PayoutStatusPending {
		return apperrors.NewConflictError(
			fmt.Sprintf("payout %s is no longer pending", payout.ID))
	}

	// Balance re-check happens here; failure leaves the payout pending
	if err := f.wallets.Debit(ctx, walletID, payout.Amount, "payout "+payout.ID); err != nil {
		return err
	}

	cp := *payout
	f.payouts[payout.ID] = &cp
	return nil
}

func (f *fakePayoutStore) Reject(ctx context.Context, payout *models.Payout, outboxMsg *models.OutboxMessage) error {
	stored, ok := f.payouts[payout.ID]

	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("payout %s not found", payout.ID))
	}

	if stored.Status != models.PayoutStatusPending {
		return apperrors.NewConflictError(
			fmt.Sprintf("payout %s is no longer pending", payout.ID))
	}

	cp := *payout
	f.payouts[payout.ID] = &cp
	return nil
}

func (f *fakePayoutStore) Process(ctx context.Context, payout *models.Payout, outboxMsg *models.OutboxMessage) error {
	stored, ok := f.payouts[payout.ID]

	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("payout %s not found", payout.ID))
	}

	if stored.Status != models.PayoutStatusApproved {
		return apperrors.NewConflictError(
			fmt.Sprintf("payout %s is not approved", payout.ID))
	}

	cp := *payout
	f.payouts[payout.ID] = &cp
	return nil
}

type fakeReviewStore struct {
	reviews  map[string]*models.Review
	products *fakeProductStore
}

func newFakeReviewStore(products *fakeProductStore) *fakeReviewStore {
	return &fakeReviewStore{
		reviews:  make(map[string]*models.Review),
		products: products,
	}
}

func (f *fakeReviewStore) Create(ctx context.Context, review *models.Review) error {
	for _, r := range f.reviews {
		if r.UserID == review.UserID && r.ProductID == review.ProductID {
			return apperrors.NewValidationError(
				fmt.Sprintf("user %s has already reviewed product %s", review.UserID, review.ProductID))
		}
	}

	cp := *review
	f.reviews[review.ID] = &cp
	f.refreshStats(review.ProductID)
	return nil
}

func (f *fakeReviewStore) Update(ctx context.Context, review *models.Review) error {
	if _, ok := f.reviews[review.ID]; !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("review %s not found", review.ID))
	}

	cp := *review
	f.reviews[review.ID] = &cp
	f.refreshStats(review.ProductID)
	return nil
}

func (f *fakeReviewStore) Delete(ctx context.Context, review *models.Review) error {
	if _, ok := f.reviews[review.ID]; !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("review %s not found", review.ID))
	}

	delete(f.reviews, review.ID)
	f.refreshStats(review.ProductID)
	return nil
}

func (f *fakeReviewStore) GetByID(ctx context.Context, id string) (*models.Review, error) {
	r, ok := f.reviews[id]

	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("review %s not found", id))
	}

	cp := *r
	return &cp, nil
}

func (f *fakeReviewStore) GetByProductID(ctx context.Context, productID string, limit, offset int) ([]*models.Review, error) {
	var out []*models.Review

	for _, r := range f.reviews {
		if r.ProductID == productID {
			cp := *r
			out = append(out, &cp)
		}
	}

	return out, nil
}

func (f *fakeReviewStore) refreshStats(productID string) {
	p, ok := f.products.products[productID]

	if !ok {
		return
	}

	var sum, count int

	for _, r := range f.reviews {
		if r.ProductID == productID {
			sum += r.Rating
			count++
		}
	}

	if count == 0 {
		p.AverageRating = 0
		p.TotalReviews = 0
		return
	}

	p.AverageRating = float64(sum) / float64(count)
	p.TotalReviews = count
}

// fakeCache satisfies both ProductCache and ProductInvalidator
type fakeCache struct {
	entries       map[string]*models.Product
	invalidations int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*models.Product)}
}

func (f *fakeCache) Get(ctx context.Context, productID string) (*models.Product, bool) {
	p, ok := f.entries[productID]
	return p, ok
}

func (f *fakeCache) Set(ctx context.Context, product *models.Product) {
	f.entries[product.ID] = product
}

func (f *fakeCache) Invalidate(ctx context.Context, productID string) {
	delete(f.entries, productID)
	f.invalidations++
}
