package ussd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kudifi/kudifi/internal/account"
	"github.com/kudifi/kudifi/internal/phone"
	"github.com/kudifi/kudifi/internal/pin"
	"github.com/kudifi/kudifi/internal/price"
	"github.com/kudifi/kudifi/internal/tokens"
	"github.com/kudifi/kudifi/internal/transfer"
)

const (
	genericFailure = "END Something went wrong. Please try again later."
	invalidOption  = "END Invalid option."
	lockedOutMsg   = "END Too many incorrect PIN attempts. Try again later."
)

// Dispatcher is the session state machine. It re-derives the caller's position
// from the account record plus the decoded token sequence on every request and
// produces a single CON or END response; no session state lives in-process.
type Dispatcher struct {
	accounts        account.Repository
	guard           *pin.Guard
	transfers       *transfer.Service
	oracle          price.Oracle
	logger          *slog.Logger
	countryCode     string
	donationAddress string

	authed []node
}

// NewDispatcher wires the state machine to its collaborators.
func NewDispatcher(accounts account.Repository, guard *pin.Guard, transfers *transfer.Service, oracle price.Oracle, logger *slog.Logger, countryCode, donationAddress string) *Dispatcher {
	d := &Dispatcher{
		accounts:        accounts,
		guard:           guard,
		transfers:       transfers,
		oracle:          oracle,
		logger:          logger,
		countryCode:     countryCode,
		donationAddress: donationAddress,
	}
	d.authed = d.menuNodes()
	return d
}

// Handle processes one gateway request and returns the response text. Every
// failure path collapses into a terminal response; the caller never sees a
// hung session or an internal error message.
func (d *Dispatcher) Handle(ctx context.Context, phoneNumber, text string) string {
	identity := phone.Sanitize(phoneNumber, d.countryCode)
	toks := Decode(text)

	acct, err := d.accounts.FindByPhone(ctx, identity)
	switch {
	case errors.Is(err, account.ErrNotFound):
		return d.unregistered(ctx, identity, toks)
	case err != nil:
		return d.fail("load account", err)
	}

	if !acct.HasPIN() {
		return d.pinSetup(ctx, acct, toks)
	}

	n, ok := match(d.authed, toks)
	if !ok {
		return invalidOption
	}
	return n.handle(ctx, acct, toks)
}

// unregistered offers wallet creation and nothing else.
func (d *Dispatcher) unregistered(ctx context.Context, identity string, toks []string) string {
	switch {
	case len(toks) == 0:
		return "CON Welcome to Kudifi\n1. Create wallet"
	case len(toks) == 1 && toks[0] == "1":
		acct, err := d.transfers.Provision(ctx, identity)
		if err != nil {
			return d.fail("provision wallet", err)
		}
		return fmt.Sprintf("CON Wallet created:\n%s\nSet a 4-digit PIN to continue:", acct.WalletAddr)
	case len(toks) == 1 && pinTok(toks[0]):
		return "END Please create a wallet first."
	default:
		return invalidOption
	}
}

// pinSetup gates everything until a credential exists. Only the latest token
// matters here: the session text still carries the wallet-creation choice in
// front of the PIN the caller just typed.
func (d *Dispatcher) pinSetup(ctx context.Context, acct account.Account, toks []string) string {
	if len(toks) == 0 {
		return "CON Set a 4-digit PIN to proceed:"
	}
	entered := toks[len(toks)-1]
	if !pinTok(entered) {
		return "CON PIN must be exactly 4 digits. Set a 4-digit PIN:"
	}
	if err := d.guard.Set(ctx, acct.ID, entered); err != nil {
		return d.fail("set pin", err)
	}
	return "END PIN set successfully. You can now use Kudifi."
}

// menuNodes declares the authenticated menu tree. Longer, more specific
// shapes come first; match falls through to shorter selections.
func (d *Dispatcher) menuNodes() []node {
	return []node{
		// Send: 1 * token * recipient * amount * confirm * pin
		{shape: []matcher{lit("1"), tokenChoice, phoneTok, amountTok, lit("1"), pinTok}, handle: d.executeSend},
		{shape: []matcher{lit("1"), tokenChoice, phoneTok, amountTok, confirmChoice}, handle: d.sendConfirmChoice},
		{shape: []matcher{lit("1"), tokenChoice, phoneTok, amountTok}, handle: d.sendReview},
		{shape: []matcher{lit("1"), tokenChoice, phoneTok}, handle: prompt("CON Enter amount to send:")},
		{shape: []matcher{lit("1"), tokenChoice}, handle: prompt("CON Enter recipient phone number (e.g. 054xxxxxxxx):")},
		{shape: []matcher{lit("1")}, handle: chooseToken},

		// Balance: 2 * token
		{shape: []matcher{lit("2"), tokenChoice}, handle: d.balance},
		{shape: []matcher{lit("2")}, handle: chooseToken},

		// Buy: 3 * token * amount * confirm
		{shape: []matcher{lit("3"), tokenChoice, amountTok, confirmChoice}, handle: d.buyConfirmChoice},
		{shape: []matcher{lit("3"), tokenChoice, amountTok}, handle: d.buyQuote},
		{shape: []matcher{lit("3"), tokenChoice}, handle: buyAmountPrompt},
		{shape: []matcher{lit("3")}, handle: chooseToken},

		// Wallet address: 4
		{shape: []matcher{lit("4")}, handle: walletAddress},

		// Donate: 5 * token * amount * confirm * pin
		{shape: []matcher{lit("5"), tokenChoice, amountTok, lit("1"), pinTok}, handle: d.executeDonation},
		{shape: []matcher{lit("5"), tokenChoice, amountTok, confirmChoice}, handle: d.donateConfirmChoice},
		{shape: []matcher{lit("5"), tokenChoice, amountTok}, handle: d.donateReview},
		{shape: []matcher{lit("5"), tokenChoice}, handle: prompt("CON Enter amount to donate:")},
		{shape: []matcher{lit("5")}, handle: chooseToken},

		// Main menu.
		{shape: nil, handle: mainMenu},
	}
}

func mainMenu(_ context.Context, _ account.Account, _ []string) string {
	return "CON Welcome to Kudifi\n1. Send tokens\n2. Check balance\n3. Buy tokens\n4. My wallet address\n5. Donate"
}

func chooseToken(_ context.Context, _ account.Account, _ []string) string {
	return "CON Choose token:\n" + tokens.MenuLines()
}

func buyAmountPrompt(_ context.Context, _ account.Account, toks []string) string {
	token, _ := tokens.ByMenuChoice(toks[1])
	return fmt.Sprintf("CON Enter amount in GHS to buy %s:", token.Symbol)
}

func walletAddress(_ context.Context, acct account.Account, _ []string) string {
	return "END Your wallet address:\n" + acct.PreferredAddress()
}

func prompt(text string) func(context.Context, account.Account, []string) string {
	return func(_ context.Context, _ account.Account, _ []string) string { return text }
}

func (d *Dispatcher) balance(ctx context.Context, acct account.Account, toks []string) string {
	token, _ := tokens.ByMenuChoice(toks[1])
	units, err := d.transfers.Balance(ctx, acct, token)
	if err != nil {
		return d.fail("read balance", err)
	}
	return fmt.Sprintf("END Your %s balance is %s", token.Symbol, tokens.FormatUnits(units, token.Decimals))
}

// sendReview runs the informational balance check when the amount is first
// entered and shows the confirm screen.
func (d *Dispatcher) sendReview(ctx context.Context, acct account.Account, toks []string) string {
	token, _ := tokens.ByMenuChoice(toks[1])
	recipient, rawAmount := toks[2], toks[3]

	if _, err := d.transfers.CheckFunds(ctx, acct, token, rawAmount); err != nil {
		return d.fundsFailure(token, err)
	}
	return fmt.Sprintf("CON Send %s %s to %s\n1. Confirm\n2. Cancel", rawAmount, token.Symbol, recipient)
}

func (d *Dispatcher) sendConfirmChoice(_ context.Context, _ account.Account, toks []string) string {
	if toks[4] == "2" {
		return "END Transfer cancelled."
	}
	return "CON Enter your 4-digit PIN:"
}

// executeSend is the terminal transfer node: lockout check first, then the
// authoritative balance recheck, PIN verification under the per-identity
// confirm lock, recipient resolution and a single engine transfer.
func (d *Dispatcher) executeSend(ctx context.Context, acct account.Account, toks []string) string {
	token, _ := tokens.ByMenuChoice(toks[1])
	recipientRaw, rawAmount, enteredPIN := toks[2], toks[3], toks[5]

	resp, release, ok := d.verifyForSpend(ctx, acct, token, rawAmount, enteredPIN)
	if !ok {
		return resp
	}
	defer release()

	recipientPhone := phone.Sanitize(recipientRaw, d.countryCode)
	recipient, err := d.transfers.ResolveOrProvisionRecipient(ctx, recipientPhone)
	if err != nil {
		return d.fail("resolve recipient", err)
	}

	if _, err := d.transfers.Execute(ctx, acct, recipient.WalletAddr, token, rawAmount); err != nil {
		return d.fail("execute transfer", err)
	}
	return fmt.Sprintf("END Sent %s %s to %s", rawAmount, token.Symbol, recipientRaw)
}

func (d *Dispatcher) donateReview(ctx context.Context, acct account.Account, toks []string) string {
	token, _ := tokens.ByMenuChoice(toks[1])
	rawAmount := toks[2]

	if _, err := d.transfers.CheckFunds(ctx, acct, token, rawAmount); err != nil {
		return d.fundsFailure(token, err)
	}
	return fmt.Sprintf("CON Donate %s %s to the Kudifi team\n1. Confirm\n2. Cancel", rawAmount, token.Symbol)
}

func (d *Dispatcher) donateConfirmChoice(_ context.Context, _ account.Account, toks []string) string {
	if toks[3] == "2" {
		return "END Donation cancelled."
	}
	return "CON Enter your 4-digit PIN:"
}

// executeDonation always pays out to the configured team address, regardless
// of caller identity.
func (d *Dispatcher) executeDonation(ctx context.Context, acct account.Account, toks []string) string {
	token, _ := tokens.ByMenuChoice(toks[1])
	rawAmount, enteredPIN := toks[2], toks[4]

	resp, release, ok := d.verifyForSpend(ctx, acct, token, rawAmount, enteredPIN)
	if !ok {
		return resp
	}
	defer release()

	if _, err := d.transfers.Execute(ctx, acct, d.donationAddress, token, rawAmount); err != nil {
		return d.fail("execute donation", err)
	}
	return fmt.Sprintf("END Thank you! Donated %s %s to the Kudifi team.", rawAmount, token.Symbol)
}

func (d *Dispatcher) buyQuote(ctx context.Context, _ account.Account, toks []string) string {
	token, _ := tokens.ByMenuChoice(toks[1])
	amountGHS, err := d.transfers.ValidateAmount(toks[2])
	if err != nil {
		return "END Invalid amount."
	}

	rate, err := d.oracle.TokenPriceGHS(ctx, token.Symbol)
	if err != nil || rate <= 0 {
		return d.fail("quote price", err)
	}
	return fmt.Sprintf("CON Rate: 1 %s = %v GHS\nYou'll get %.2f %s.\n1. Confirm\n2. Cancel",
		token.Symbol, rate, amountGHS/rate, token.Symbol)
}

// buyConfirmChoice records a PENDING purchase intent on confirm. No transfer
// is ever executed here; fulfillment is asynchronous and external.
func (d *Dispatcher) buyConfirmChoice(ctx context.Context, acct account.Account, toks []string) string {
	token, _ := tokens.ByMenuChoice(toks[1])
	if toks[3] == "2" {
		return "END Purchase cancelled."
	}

	amountGHS, err := d.transfers.ValidateAmount(toks[2])
	if err != nil {
		return "END Invalid amount."
	}
	if _, err := d.transfers.RecordPurchase(ctx, acct, token, amountGHS); err != nil {
		return d.fail("record purchase", err)
	}
	return fmt.Sprintf("END Your purchase of GHS %v %s is being processed.", amountGHS, token.Symbol)
}

// verifyForSpend runs the shared pre-transfer gate: lockout fast-path,
// authoritative balance recheck, confirm lock and PIN verification. On the
// failure path it returns the terminal response with any held lock released.
// On success the lock stays held and the caller must invoke release.
func (d *Dispatcher) verifyForSpend(ctx context.Context, acct account.Account, token tokens.Token, rawAmount, enteredPIN string) (string, func(), bool) {
	// Cheap lockout check before any upstream work.
	attempts, err := d.guard.Attempts(ctx, acct.PhoneNumber)
	if err != nil {
		return d.fail("read attempts", err), nil, false
	}
	if attempts >= d.guard.MaxAttempts() {
		return lockedOutMsg, nil, false
	}

	if _, err := d.transfers.CheckFunds(ctx, acct, token, rawAmount); err != nil {
		return d.fundsFailure(token, err), nil, false
	}

	release, err := d.transfers.AcquireConfirmLock(ctx, acct.PhoneNumber)
	if err != nil {
		if errors.Is(err, transfer.ErrBusy) {
			return "END A transaction is already in progress. Please wait.", nil, false
		}
		return d.fail("acquire lock", err), nil, false
	}

	n, err := d.guard.Verify(ctx, acct, enteredPIN)
	if err != nil {
		release()
		switch {
		case errors.Is(err, pin.ErrLockedOut):
			return lockedOutMsg, nil, false
		case errors.Is(err, pin.ErrMismatch):
			if n >= d.guard.MaxAttempts() {
				return lockedOutMsg, nil, false
			}
			return fmt.Sprintf("END Incorrect PIN. Attempt %d of %d", n, d.guard.MaxAttempts()), nil, false
		default:
			return d.fail("verify pin", err), nil, false
		}
	}
	return "", release, true
}

func (d *Dispatcher) fundsFailure(token tokens.Token, err error) string {
	switch {
	case errors.Is(err, transfer.ErrInvalidAmount):
		return "END Invalid amount."
	case errors.Is(err, transfer.ErrInsufficientFunds):
		return fmt.Sprintf("END Insufficient %s balance.", token.Symbol)
	default:
		return d.fail("check funds", err)
	}
}

// fail logs the cause and returns the generic terminal response. The caller
// never sees internal detail.
func (d *Dispatcher) fail(op string, err error) string {
	d.logger.Error("ussd request failed", "op", op, "error", err)
	return genericFailure
}
