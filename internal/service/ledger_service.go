package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/studgig-backend/internal/domain/valueobject"
	"github.com/ignatzorin/studgig-backend/internal/logger"
	"github.com/ignatzorin/studgig-backend/internal/models"
	"github.com/ignatzorin/studgig-backend/internal/payment"
	"github.com/ignatzorin/studgig-backend/internal/pkg/apperror"
)

// MinWithdrawalAmount минимальная сумма вывода.
var MinWithdrawalAmount = decimal.NewFromInt(100)

type LedgerRepository interface {
	GetOrCreateWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	AdjustBalance(ctx context.Context, entry *models.LedgerEntry) (*models.Wallet, error)
	AppendEntry(ctx context.Context, entry *models.LedgerEntry) error
	GetEntryByReference(ctx context.Context, referenceID string) (*models.LedgerEntry, error)
	ReconcileByReference(ctx context.Context, referenceID, status string) (*models.LedgerEntry, bool, error)
	ListEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error)
	ListStalePending(ctx context.Context, kind string, before time.Time, limit int) ([]models.LedgerEntry, error)
}

// PaymentProviders выбирает шлюз по имени.
type PaymentProviders interface {
	Get(name string) (payment.Provider, bool)
}

// DepositResult ожидающая запись пополнения и ссылка на страницу оплаты.
type DepositResult struct {
	Entry      *models.LedgerEntry `json:"transaction"`
	GatewayURL string              `json:"gateway_url"`
}

// LedgerService кошельки, журнал и сверка с платёжными провайдерами.
type LedgerService struct {
	repo            LedgerRepository
	providers       PaymentProviders
	directory       *Directory
	notifier        Notifier
	initiateTimeout time.Duration
	now             func() time.Time
}

func NewLedgerService(repo LedgerRepository, providers PaymentProviders, directory *Directory, notifier Notifier, initiateTimeout time.Duration) *LedgerService {
	if initiateTimeout <= 0 {
		initiateTimeout = 10 * time.Second
	}
	return &LedgerService{
		repo:            repo,
		providers:       providers,
		directory:       directory,
		notifier:        notifier,
		initiateTimeout: initiateTimeout,
		now:             time.Now,
	}
}

// GetWallet возвращает кошелёк пользователя, создавая его при первом обращении.
func (s *LedgerService) GetWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	wallet, err := s.repo.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return nil, storeError(err, apperror.ErrWalletNotFound, "")
	}
	return wallet, nil
}

// AdjustBalance меняет баланс на signedAmount и пишет завершённую запись журнала.
func (s *LedgerService) AdjustBalance(ctx context.Context, userID uuid.UUID, signedAmount decimal.Decimal, kind, description string) (*models.Wallet, error) {
	if signedAmount.IsZero() {
		return nil, apperror.ErrInvalidAmount
	}
	if _, err := valueobject.NewPositiveAmount(signedAmount.Abs()); err != nil {
		return nil, err
	}
	if err := checkEntryKind(kind); err != nil {
		return nil, err
	}

	wallet, err := s.repo.AdjustBalance(ctx, &models.LedgerEntry{
		UserID:      userID,
		Description: description,
		Amount:      signedAmount,
		Kind:        kind,
		Status:      models.EntryStatusCompleted,
	})
	if err != nil {
		return nil, storeError(err, apperror.ErrWalletNotFound, "")
	}
	return wallet, nil
}

// AppendEntry добавляет запись журнала без изменения баланса.
func (s *LedgerService) AppendEntry(ctx context.Context, entry *models.LedgerEntry) error {
	if err := checkEntryKind(entry.Kind); err != nil {
		return err
	}
	if _, ok := models.ValidEntryStatuses[entry.Status]; !ok {
		return apperror.New(apperror.ErrCodeValidation, "некорректный статус транзакции")
	}
	return storeError(s.repo.AppendEntry(ctx, entry), apperror.ErrWalletNotFound, "")
}

func checkEntryKind(kind string) error {
	if _, ok := models.ValidEntryKinds[kind]; !ok {
		return apperror.New(apperror.ErrCodeValidation, "некорректный тип транзакции")
	}
	return nil
}

// InitiateDeposit создаёт ожидающее пополнение и запрашивает у шлюза страницу оплаты.
// Шлюз вызывается вне транзакции и с ограничением по времени; при ошибке запись
// остаётся в pending до обратного вызова или истечения срока.
func (s *LedgerService) InitiateDeposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, gateway string) (*DepositResult, error) {
	amount, err := valueobject.NewPositiveAmount(amount)
	if err != nil {
		return nil, err
	}
	provider, ok := s.providers.Get(gateway)
	if !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный платёжный шлюз")
	}

	entryID := uuid.New()
	entry := &models.LedgerEntry{
		ID:            entryID,
		UserID:        userID,
		Description:   "Пополнение баланса через " + provider.Name(),
		Amount:        amount,
		Kind:          models.EntryKindDeposit,
		Status:        models.EntryStatusPending,
		ReferenceID:   models.StringPtr(entryID.String()),
		ReferenceType: models.StringPtr(provider.Name()),
	}
	if err := s.repo.AppendEntry(ctx, entry); err != nil {
		return nil, storeError(err, apperror.ErrWalletNotFound, "")
	}

	initCtx, cancel := context.WithTimeout(ctx, s.initiateTimeout)
	defer cancel()

	url, err := provider.Initiate(initCtx, payment.InitiateRequest{
		TransactionID: entryID.String(),
		Amount:        amount,
		PayerID:       userID,
		PayerEmail:    s.payerEmail(ctx, userID),
		Description:   entry.Description,
	})
	if err != nil {
		logger.Log.WithFields(map[string]interface{}{
			"user_id":      userID,
			"reference_id": entryID,
			"gateway":      provider.Name(),
			"error":        err.Error(),
		}).Warn("ledger service: не удалось инициировать платёж, пополнение остаётся в ожидании")
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "платёжный шлюз недоступен, попробуйте позже")
	}

	return &DepositResult{Entry: entry, GatewayURL: url}, nil
}

// Withdraw списывает сумму и создаёт ожидающую выплату.
func (s *LedgerService) Withdraw(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.LedgerEntry, error) {
	amount, err := valueobject.NewPositiveAmount(amount)
	if err != nil {
		return nil, err
	}
	if amount.LessThan(MinWithdrawalAmount) {
		return nil, apperror.New(apperror.ErrCodeValidation, "минимальная сумма вывода 100")
	}

	entryID := uuid.New()
	entry := &models.LedgerEntry{
		ID:            entryID,
		UserID:        userID,
		Description:   "Вывод средств",
		Amount:        amount.Neg(),
		Kind:          models.EntryKindWithdrawal,
		Status:        models.EntryStatusPending,
		ReferenceID:   models.StringPtr(entryID.String()),
		ReferenceType: models.StringPtr(models.ReferenceTypePayout),
	}
	if _, err := s.repo.AdjustBalance(ctx, entry); err != nil {
		return nil, storeError(err, apperror.ErrWalletNotFound, "")
	}

	s.notifier.Notify(userID, "Заявка на вывод создана", "Сумма "+amount.StringFixed(2)+" списана и ожидает выплаты",
		models.NotificationWallet, entryID, models.ReferenceTypePayout)
	return entry, nil
}

// Reconcile переводит запись с внешней ссылкой в конечный статус. Повторные
// вызовы для завершённой записи ничего не меняют.
func (s *LedgerService) Reconcile(ctx context.Context, referenceID, status string) (*models.LedgerEntry, bool, error) {
	if status != models.EntryStatusCompleted && status != models.EntryStatusFailed {
		return nil, false, apperror.New(apperror.ErrCodeValidation, "статус сверки должен быть completed или failed")
	}

	entry, applied, err := s.repo.ReconcileByReference(ctx, referenceID, status)
	if err != nil {
		return nil, false, storeError(err, apperror.ErrUnknownReference, "")
	}

	if applied {
		s.notifyReconciled(entry)
	}
	return entry, applied, nil
}

// HandleCallback обрабатывает подписанный обратный вызов шлюза.
// Неизвестные ссылки и незавершённые платежи подтверждаются без изменений.
func (s *LedgerService) HandleCallback(ctx context.Context, gateway, event string, body []byte, signature string) error {
	provider, ok := s.providers.Get(gateway)
	if !ok {
		return apperror.New(apperror.ErrCodeNotFound, "неизвестный платёжный шлюз")
	}
	if !provider.VerifySignature(body, signature) {
		return apperror.New(apperror.ErrCodeForbidden, "неверная подпись обратного вызова")
	}
	if !payment.IsKnownEvent(event) {
		return apperror.New(apperror.ErrCodeNotFound, "неизвестное событие")
	}

	var cb payment.Callback
	if err := json.Unmarshal(body, &cb); err != nil || cb.TransactionID == "" {
		return apperror.New(apperror.ErrCodeValidation, "некорректное тело обратного вызова")
	}

	fields := map[string]interface{}{
		"gateway":       provider.Name(),
		"event":         event,
		"reference_id":  cb.TransactionID,
		"validation_id": cb.ValidationID,
	}

	status, final := payment.ResolveStatus(event, cb.Status)
	if !final {
		logger.Log.WithFields(fields).Info("ledger service: платёж ещё не завершён, сверка отложена")
		return nil
	}

	entry, err := s.repo.GetEntryByReference(ctx, cb.TransactionID)
	if err != nil {
		err = storeError(err, apperror.ErrUnknownReference, "")
		if apperror.IsUnknownReference(err) {
			logger.Log.WithFields(fields).Warn("ledger service: обратный вызов для неизвестной транзакции")
			return nil
		}
		return err
	}
	if !belongsToGateway(entry, provider.Name()) {
		logger.Log.WithFields(fields).Warn("ledger service: транзакция создана другим шлюзом")
		return nil
	}

	if status == models.EntryStatusCompleted && !cb.Amount.Equal(entry.Amount.Abs()) {
		fields["expected_amount"] = entry.Amount.Abs().String()
		fields["amount"] = cb.Amount.String()
		logger.Log.WithFields(fields).Warn("ledger service: сумма обратного вызова не совпадает")
		return apperror.New(apperror.ErrCodeValidation, "сумма платежа не совпадает с транзакцией")
	}

	_, applied, err := s.Reconcile(ctx, cb.TransactionID, status)
	if err != nil {
		if apperror.IsUnknownReference(err) {
			logger.Log.WithFields(fields).Warn("ledger service: обратный вызов для неизвестной транзакции")
			return nil
		}
		return err
	}

	fields["status"] = status
	fields["applied"] = applied
	logger.Log.WithFields(fields).Info("ledger service: обратный вызов обработан")
	return nil
}

// ListTransactions возвращает историю транзакций.
func (s *LedgerService) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error) {
	limit, offset = normalizePage(limit, offset)
	entries, err := s.repo.ListEntries(ctx, userID, limit, offset)
	if err != nil {
		return nil, storeError(err, apperror.ErrWalletNotFound, "")
	}
	return entries, nil
}

// ExpireStaleDeposits помечает failed пополнения, не подтверждённые за ttl.
func (s *LedgerService) ExpireStaleDeposits(ctx context.Context, ttl time.Duration) (int, error) {
	stale, err := s.repo.ListStalePending(ctx, models.EntryKindDeposit, s.now().Add(-ttl), 100)
	if err != nil {
		return 0, storeError(err, apperror.ErrWalletNotFound, "")
	}

	expired := 0
	for _, entry := range stale {
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}
		_, applied, err := s.Reconcile(ctx, *entry.ReferenceID, models.EntryStatusFailed)
		if err != nil {
			logger.Log.WithFields(map[string]interface{}{
				"reference_id": *entry.ReferenceID,
				"error":        err.Error(),
			}).Warn("ledger service: не удалось закрыть просроченное пополнение")
			continue
		}
		if applied {
			expired++
		}
	}
	return expired, nil
}

func (s *LedgerService) notifyReconciled(entry *models.LedgerEntry) {
	var title string
	switch {
	case entry.Kind == models.EntryKindDeposit && entry.Status == models.EntryStatusCompleted:
		title = "Баланс пополнен"
	case entry.Kind == models.EntryKindDeposit:
		title = "Пополнение не прошло"
	case entry.Status == models.EntryStatusCompleted:
		title = "Выплата отправлена"
	default:
		title = "Выплата не прошла, средства возвращены"
	}
	s.notifier.Notify(entry.UserID, title, "Сумма "+entry.Amount.Abs().StringFixed(2),
		models.NotificationWallet, entry.ID, models.ReferenceTypeTransaction)
}

func (s *LedgerService) payerEmail(ctx context.Context, userID uuid.UUID) string {
	if s.directory == nil {
		return ""
	}
	return s.directory.Email(ctx, userID)
}

// belongsToGateway пополнения принадлежат шлюзу, через который созданы; выплаты принимаются от любого.
func belongsToGateway(entry *models.LedgerEntry, gateway string) bool {
	if entry.ReferenceType == nil {
		return false
	}
	return *entry.ReferenceType == gateway || *entry.ReferenceType == models.ReferenceTypePayout
}
