// Package normalize converts a loosely-typed user intent into a
// strongly-typed, chain-bound operation descriptor.
package normalize

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hashdesk/intent-engine/pkg/logger"
	"github.com/hashdesk/intent-engine/pkg/models"
	"github.com/hashdesk/intent-engine/pkg/notify"
	"github.com/hashdesk/intent-engine/pkg/pipeerr"
	"github.com/hashdesk/intent-engine/pkg/registry"
)

// TokenSelectionError signals that a token reference matched more than one
// known token. It is a recoverable, non-failure signal: the caller presents
// the candidates and resubmits the intent with a concrete token id. It is
// never converted into a pipeline failure.
type TokenSelectionError struct {
	Ref string
	// Dest marks the ambiguity as the destination side of a routed intent,
	// so the resubmission fills ToTokenID instead of TokenID.
	Dest       bool
	Candidates []models.Token
}

func (e *TokenSelectionError) Error() string {
	return fmt.Sprintf("token reference %q matched %d tokens", e.Ref, len(e.Candidates))
}

// IsTokenSelection reports whether err is a token disambiguation request and
// returns it if so.
func IsTokenSelection(err error) (*TokenSelectionError, bool) {
	tse, ok := err.(*TokenSelectionError)
	return tse, ok
}

// Normalizer resolves intents against a token catalog and chain registry.
type Normalizer struct {
	catalog  Catalog
	registry *registry.Registry
	sink     notify.Sink
	logger   logger.Logger
}

// New creates a normalizer. sink may be nil when no UI is attached.
func New(catalog Catalog, reg *registry.Registry, sink notify.Sink, log logger.Logger) *Normalizer {
	if sink == nil {
		sink = notify.NullSink{}
	}
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Normalizer{catalog: catalog, registry: reg, sink: sink, logger: log}
}

// Normalize produces the chain-bound operation for an intent. walletChainID
// is the wallet's currently active chain and doubles as the preferred chain
// for token resolution. Normalization has no on-chain side effects; it may
// post a purely informational advisory when the resolved chain differs from
// the wallet's current one.
func (n *Normalizer) Normalize(intent *models.Intent, walletChainID int) (*models.NormalizedOperation, error) {
	if intent == nil {
		return nil, pipeerr.New(pipeerr.PhaseNormalize, pipeerr.CodeMissingIntent, "no intent provided")
	}

	var (
		op  *models.NormalizedOperation
		err error
	)
	switch intent.Action {
	case models.ActionTransfer:
		op, err = n.normalizeTransfer(intent, walletChainID)
	case models.ActionSwap, models.ActionBridge, models.ActionBridgeSwap:
		op, err = n.normalizeRouted(intent, walletChainID)
	case "":
		return nil, pipeerr.New(pipeerr.PhaseNormalize, pipeerr.CodeMissingIntent, "intent has no action")
	default:
		return nil, pipeerr.Newf(pipeerr.PhaseNormalize, pipeerr.CodeInvalidAction, "no normalizer for action %q", intent.Action)
	}
	if err != nil {
		return nil, err
	}

	if op.ChainID != walletChainID {
		name := n.registry.Name(op.ChainID)
		n.sink.Post(notify.Message{
			Kind: notify.KindInfo,
			Text: fmt.Sprintf("This operation runs on %s; your wallet will be switched before sending.", name),
		})
	}
	return op, nil
}

// normalizeTransfer handles transfer-shaped intents: a recipient is required
// and the operation stays on a single chain.
func (n *Normalizer) normalizeTransfer(intent *models.Intent, walletChainID int) (*models.NormalizedOperation, error) {
	chainID := intent.ChainID
	if chainID == 0 {
		chainID = walletChainID
	}
	if _, ok := n.registry.Get(chainID); !ok {
		return nil, pipeerr.Newf(pipeerr.PhaseNormalize, pipeerr.CodeNormalize, "unknown chain %d", chainID)
	}

	to, err := parseRecipient(intent.Recipient)
	if err != nil {
		return nil, err
	}

	token, err := n.resolveToken(intent, chainID)
	if err != nil {
		return nil, err
	}

	decimals := uint8(18)
	kind := models.KindNativeTransfer
	if token != nil {
		if token.ChainID != chainID && intent.ChainID != 0 {
			return nil, pipeerr.Newf(pipeerr.PhaseNormalize, pipeerr.CodeNormalize,
				"token %s lives on chain %d, not %d", token.Symbol, token.ChainID, chainID)
		}
		// A bare token reference binds the operation to the token's chain.
		chainID = token.ChainID
		decimals = token.Decimals
		kind = models.KindERC20Transfer
	}

	amount, err := parseAmount(intent.Amount, decimals)
	if err != nil {
		return nil, err
	}

	return &models.NormalizedOperation{
		Kind:      kind,
		ChainID:   chainID,
		Token:     token,
		AmountWei: amount,
		To:        to,
	}, nil
}

// normalizeRouted handles swap/bridge-shaped intents. The source chain is
// resolved from the source token and becomes the operation's required chain
// for the synchronizer; destination chain and token select the aggregator
// path at execution time.
func (n *Normalizer) normalizeRouted(intent *models.Intent, walletChainID int) (*models.NormalizedOperation, error) {
	preferred := intent.ChainID
	if preferred == 0 {
		preferred = walletChainID
	}
	srcToken, err := n.resolveToken(intent, preferred)
	if err != nil {
		return nil, err
	}

	chainID := intent.ChainID
	decimals := uint8(18)
	kind := models.KindNativeTransfer
	if srcToken != nil {
		chainID = srcToken.ChainID
		decimals = srcToken.Decimals
		kind = models.KindERC20Transfer
	}
	if chainID == 0 {
		chainID = walletChainID
	}
	if _, ok := n.registry.Get(chainID); !ok {
		return nil, pipeerr.Newf(pipeerr.PhaseNormalize, pipeerr.CodeNormalize, "unknown source chain %d", chainID)
	}

	destChainID := intent.ToChainID
	switch intent.Action {
	case models.ActionSwap:
		destChainID = chainID
	case models.ActionBridge, models.ActionBridgeSwap:
		if destChainID == 0 {
			return nil, pipeerr.New(pipeerr.PhaseNormalize, pipeerr.CodeNormalize, "bridge intent has no destination chain")
		}
		if destChainID == chainID {
			return nil, pipeerr.Newf(pipeerr.PhaseNormalize, pipeerr.CodeNormalize, "bridge destination chain equals the source chain %d", chainID)
		}
		if _, ok := n.registry.Get(destChainID); !ok {
			return nil, pipeerr.Newf(pipeerr.PhaseNormalize, pipeerr.CodeNormalize, "unknown destination chain %d", destChainID)
		}
	}

	destToken, err := n.resolveDestToken(intent, destChainID)
	if err != nil {
		return nil, err
	}
	if destToken != nil && destToken.ChainID != destChainID {
		if intent.Action != models.ActionSwap {
			return nil, pipeerr.Newf(pipeerr.PhaseNormalize, pipeerr.CodeNormalize,
				"destination token %s lives on chain %d, not %d", destToken.Symbol, destToken.ChainID, destChainID)
		}
		// A swap whose chosen destination token lives on another chain
		// becomes cross-chain; the aggregator handles the hop.
		destChainID = destToken.ChainID
	}
	if intent.Action == models.ActionSwap && destToken == nil {
		// Without a concrete destination the operation would degenerate into
		// a recipientless transfer.
		return nil, pipeerr.New(pipeerr.PhaseNormalize, pipeerr.CodeNormalize, "swap intent has no destination token")
	}

	amount, err := parseAmount(intent.Amount, decimals)
	if err != nil {
		return nil, err
	}

	// Routed operations are executed from the sender's own account; the
	// recipient defaults to the sender and is resolved by the router.
	to := common.Address{}
	if intent.Recipient != "" {
		to, err = parseRecipient(intent.Recipient)
		if err != nil {
			return nil, err
		}
	}

	return &models.NormalizedOperation{
		Kind:        kind,
		ChainID:     chainID,
		Token:       srcToken,
		AmountWei:   amount,
		To:          to,
		DestChainID: destChainID,
		DestToken:   destToken,
	}, nil
}

// resolveToken resolves the intent's token reference. A concrete TokenID from
// a disambiguated resubmission takes precedence over the free-form reference.
// An empty reference means the chain's native currency and returns nil.
func (n *Normalizer) resolveToken(intent *models.Intent, preferredChainID int) (*models.Token, error) {
	if intent.TokenID != "" {
		tok, ok := n.catalog.ByID(intent.TokenID)
		if !ok {
			return nil, pipeerr.Newf(pipeerr.PhaseNormalize, pipeerr.CodeNormalize, "unknown token id %q", intent.TokenID)
		}
		return &tok, nil
	}

	ref := strings.TrimSpace(intent.TokenRef)
	if ref == "" || isNativeRef(ref, preferredChainID, n.registry) {
		return nil, nil
	}

	candidates := n.catalog.Lookup(ref, preferredChainID)
	switch len(candidates) {
	case 0:
		return nil, pipeerr.Newf(pipeerr.PhaseNormalize, pipeerr.CodeNormalize, "unknown token %q", ref)
	case 1:
		tok := candidates[0]
		return &tok, nil
	default:
		// Never guess between candidates; surface all of them.
		n.logger.Debug("token ref %q ambiguous across %d tokens", ref, len(candidates))
		return nil, &TokenSelectionError{Ref: ref, Candidates: candidates}
	}
}

// resolveDestToken resolves the destination-side token reference of a routed
// intent. A concrete ToTokenID from a disambiguated resubmission takes
// precedence over the free-form reference. An empty reference means no
// destination token.
func (n *Normalizer) resolveDestToken(intent *models.Intent, destChainID int) (*models.Token, error) {
	if intent.ToTokenID != "" {
		tok, ok := n.catalog.ByID(intent.ToTokenID)
		if !ok {
			return nil, pipeerr.Newf(pipeerr.PhaseNormalize, pipeerr.CodeNormalize, "unknown token id %q", intent.ToTokenID)
		}
		return &tok, nil
	}

	ref := strings.TrimSpace(intent.ToTokenRef)
	if ref == "" {
		return nil, nil
	}

	candidates := n.catalog.Lookup(ref, destChainID)
	switch len(candidates) {
	case 0:
		return nil, pipeerr.Newf(pipeerr.PhaseNormalize, pipeerr.CodeNormalize, "unknown destination token %q", ref)
	case 1:
		tok := candidates[0]
		return &tok, nil
	default:
		n.logger.Debug("destination token ref %q ambiguous across %d tokens", ref, len(candidates))
		return nil, &TokenSelectionError{Ref: ref, Dest: true, Candidates: candidates}
	}
}

func isNativeRef(ref string, chainID int, reg *registry.Registry) bool {
	info, ok := reg.Get(chainID)
	if !ok {
		return false
	}
	return strings.EqualFold(ref, info.NativeSymbol) || strings.EqualFold(ref, "native")
}

func parseRecipient(raw string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return common.Address{}, pipeerr.New(pipeerr.PhaseNormalize, pipeerr.CodeNormalize, "transfer intent has no recipient")
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, pipeerr.Newf(pipeerr.PhaseNormalize, pipeerr.CodeNormalize, "invalid recipient address %q", raw)
	}
	addr := common.HexToAddress(raw)
	if addr == (common.Address{}) {
		return common.Address{}, pipeerr.New(pipeerr.PhaseNormalize, pipeerr.CodeNormalize, "recipient is the zero address")
	}
	return addr, nil
}

// parseAmount converts a decimal amount string into base units.
func parseAmount(raw string, decimals uint8) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, pipeerr.New(pipeerr.PhaseNormalize, pipeerr.CodeNormalize, "intent has no amount")
	}

	parts := strings.SplitN(raw, ".", 2)
	whole := parts[0]
	frac := ""
	if len(parts) == 2 {
		frac = parts[1]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > int(decimals) {
		return nil, pipeerr.Newf(pipeerr.PhaseNormalize, pipeerr.CodeNormalize,
			"amount %q has more than %d decimal places", raw, decimals)
	}
	frac += strings.Repeat("0", int(decimals)-len(frac))

	amount, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, pipeerr.Newf(pipeerr.PhaseNormalize, pipeerr.CodeNormalize, "invalid amount %q", raw)
	}
	if amount.Sign() <= 0 {
		return nil, pipeerr.Newf(pipeerr.PhaseNormalize, pipeerr.CodeNormalize, "amount must be positive, got %q", raw)
	}
	return amount, nil
}
