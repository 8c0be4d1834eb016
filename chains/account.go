package chains

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/sljivkov/fiatoracle/domain"
)

const accountsPath = "/cosmos/auth/v1beta1/accounts/"

// accountPaths are tried in order; vesting and module accounts nest the base account.
var accountPaths = []string{
	"account",
	"account.base_account",
	"account.base_vesting_account.base_account",
}

// AccountMeta is the signer's on-chain account state needed for replay-safe signing.
type AccountMeta struct {
	AccountNumber uint64
	Sequence      uint64
}

// AccountClient queries accounts through the LCD REST API.
type AccountClient struct {
	lcd    string
	client *http.Client
}

// NewAccountClient creates an LCD account client. A nil client gets a 10 second timeout.
func NewAccountClient(lcdURL string, client *http.Client) *AccountClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &AccountClient{
		lcd:    strings.TrimRight(lcdURL, "/"),
		client: client,
	}
}

// FetchAccountMeta fetches the current account number and sequence of address.
func (a *AccountClient) FetchAccountMeta(ctx context.Context, address string) (AccountMeta, error) {
	endpoint := a.lcd + accountsPath + url.PathEscape(address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return AccountMeta{}, &domain.RPCError{Op: "account", Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return AccountMeta{}, &domain.RPCError{Op: "account", Err: fmt.Errorf("failed to fetch account: %w", err)}
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return AccountMeta{}, &domain.RPCError{Op: "account", Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return AccountMeta{}, &domain.RPCError{
			Op:  "account",
			Err: fmt.Errorf("LCD returned status %d: %s", resp.StatusCode, truncate(body, 256)),
		}
	}

	meta, err := parseAccountMeta(body)
	if err != nil {
		return AccountMeta{}, &domain.RPCError{Op: "account", Err: err}
	}

	return meta, nil
}

func parseAccountMeta(body []byte) (AccountMeta, error) {
	if !gjson.ValidBytes(body) {
		return AccountMeta{}, fmt.Errorf("invalid JSON in account response")
	}

	for _, path := range accountPaths {
		account := gjson.GetBytes(body, path)
		if !account.Get("sequence").Exists() && !account.Get("account_number").Exists() {
			continue
		}

		sequence, err := parseDecimal(account, "sequence")
		if err != nil {
			return AccountMeta{}, err
		}

		accountNumber, err := parseDecimal(account, "account_number")
		if err != nil {
			return AccountMeta{}, err
		}

		return AccountMeta{AccountNumber: accountNumber, Sequence: sequence}, nil
	}

	return AccountMeta{}, fmt.Errorf("account response has no sequence or account_number")
}

func parseDecimal(account gjson.Result, field string) (uint64, error) {
	v := account.Get(field)
	if !v.Exists() {
		return 0, fmt.Errorf("account response is missing %s", field)
	}

	n, err := strconv.ParseUint(v.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, v.String(), err)
	}

	return n, nil
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "...(truncated)"
	}

	return s
}
