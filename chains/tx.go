package chains

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sljivkov/fiatoracle/contract"
	"github.com/sljivkov/fiatoracle/domain"
)

// maxChainIDLength mirrors the CometBFT limit on chain identifiers.
const maxChainIDLength = 50

var denomRegexp = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9/:._-]{2,127}$`)

// Fee is the fixed fee attached to the price update.
type Fee struct {
	Denom    string
	Amount   uint64
	GasLimit uint64
}

// TxParams holds everything besides the prices and signer needed to build the transaction.
type TxParams struct {
	ContractAddress string
	ChainID         string
	Fee             Fee
	Memo            string
}

func (p TxParams) validate() error {
	if _, err := ValidateAddress(p.ContractAddress); err != nil {
		return fmt.Errorf("contract address: %w", err)
	}

	if p.ChainID == "" || len(p.ChainID) > maxChainIDLength {
		return fmt.Errorf("invalid chain id %q", p.ChainID)
	}

	if !denomRegexp.MatchString(p.Fee.Denom) {
		return fmt.Errorf("invalid fee denom %q", p.Fee.Denom)
	}

	if p.Fee.GasLimit == 0 {
		return fmt.Errorf("gas limit must be positive")
	}

	return nil
}

// SignedTx is a signed transaction ready for broadcast. It is never modified
// after BuildAndSign returns it.
type SignedTx struct {
	BodyBytes     []byte
	AuthInfoBytes []byte
	Signature     []byte
}

// Bytes returns the TxRaw encoding submitted to the ledger.
func (tx *SignedTx) Bytes() []byte {
	return encodeTxRaw(tx.BodyBytes, tx.AuthInfoBytes, [][]byte{tx.Signature})
}

// Hash returns the transaction hash as reported by CometBFT.
func (tx *SignedTx) Hash() string {
	sum := sha256.Sum256(tx.Bytes())

	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// BuildAndSign wraps an update_prices execute message into a single-message
// transaction and signs it in SIGN_MODE_DIRECT for the given account state.
func BuildAndSign(entries []contract.CurrencyPrice, id *Identity, meta AccountMeta, params TxParams) (*SignedTx, error) {
	if id == nil {
		return nil, &domain.SignError{Op: "sign", Err: errIdentityClosed}
	}

	if err := params.validate(); err != nil {
		return nil, &domain.SignError{Op: "validate params", Err: err}
	}

	msg, err := contract.NewUpdatePricesMsg(entries)
	if err != nil {
		return nil, &domain.SignError{Op: "encode execute msg", Err: err}
	}

	body := BuildTxBody(id.Address(), params.ContractAddress, msg, params.Memo)
	authInfo := BuildAuthInfo(id.pubKey, meta.Sequence, params.Fee)
	signDoc := SignDocBytes(body, authInfo, params.ChainID, meta.AccountNumber)

	sig, err := id.sign(signDoc)
	if err != nil {
		return nil, &domain.SignError{Op: "sign", Err: err}
	}

	return &SignedTx{
		BodyBytes:     body,
		AuthInfoBytes: authInfo,
		Signature:     sig,
	}, nil
}

// BuildTxBody encodes a body holding one MsgExecuteContract without funds.
func BuildTxBody(sender, contractAddr string, msg []byte, memo string) []byte {
	execute := encodeMsgExecuteContract(sender, contractAddr, msg)

	return encodeTxBody([][]byte{encodeAny(MsgExecuteContractTypeURL, execute)}, memo)
}

// BuildAuthInfo encodes a single direct signer and the fee.
func BuildAuthInfo(pubKey []byte, sequence uint64, fee Fee) []byte {
	var coins [][]byte
	if fee.Amount > 0 {
		coins = append(coins, encodeCoin(fee.Denom, strconv.FormatUint(fee.Amount, 10)))
	}

	return encodeAuthInfo(encodeSignerInfo(pubKey, sequence), encodeFee(coins, fee.GasLimit))
}

// SignDocBytes returns the canonical bytes covered by the signature.
func SignDocBytes(bodyBytes, authInfoBytes []byte, chainID string, accountNumber uint64) []byte {
	return encodeSignDoc(bodyBytes, authInfoBytes, chainID, accountNumber)
}

// VerifySignature rebuilds the sign doc of tx and checks its signature against pubKey.
func VerifySignature(tx *SignedTx, pubKey []byte, chainID string, accountNumber uint64) bool {
	doc := SignDocBytes(tx.BodyBytes, tx.AuthInfoBytes, chainID, accountNumber)

	return verify(pubKey, doc, tx.Signature)
}
