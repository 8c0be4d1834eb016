package chains

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Type URLs of the messages packed into google.protobuf.Any.
const (
	MsgExecuteContractTypeURL = "/cosmwasm.wasm.v1.MsgExecuteContract"
	Secp256k1PubKeyTypeURL    = "/cosmos.crypto.secp256k1.PubKey"
)

// signModeDirect is cosmos.tx.signing.v1beta1.SignMode SIGN_MODE_DIRECT.
const signModeDirect = 1

// The encoders below write fields in ascending field-number order and skip
// proto3 default values, which makes the output deterministic.

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}

	b = protowire.AppendTag(b, num, protowire.BytesType)

	return protowire.AppendString(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}

	b = protowire.AppendTag(b, num, protowire.BytesType)

	return protowire.AppendBytes(b, v)
}

// appendMessage always writes the field so that set-but-empty messages stay present.
func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)

	return protowire.AppendBytes(b, msg)
}

func appendUvarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}

	b = protowire.AppendTag(b, num, protowire.VarintType)

	return protowire.AppendVarint(b, v)
}

// cosmos.base.v1beta1.Coin
func encodeCoin(denom, amount string) []byte {
	var b []byte
	b = appendString(b, 1, denom)
	b = appendString(b, 2, amount)

	return b
}

// google.protobuf.Any
func encodeAny(typeURL string, value []byte) []byte {
	var b []byte
	b = appendString(b, 1, typeURL)
	b = appendBytes(b, 2, value)

	return b
}

// cosmwasm.wasm.v1.MsgExecuteContract without funds
func encodeMsgExecuteContract(sender, contract string, msg []byte) []byte {
	var b []byte
	b = appendString(b, 1, sender)
	b = appendString(b, 2, contract)
	b = appendBytes(b, 3, msg)

	return b
}

// cosmos.crypto.secp256k1.PubKey
func encodePubKey(key []byte) []byte {
	return appendBytes(nil, 1, key)
}

// cosmos.tx.v1beta1.ModeInfo with a single SIGN_MODE_DIRECT signer
func encodeModeInfoDirect() []byte {
	single := appendUvarint(nil, 1, signModeDirect)

	return appendMessage(nil, 1, single)
}

// cosmos.tx.v1beta1.SignerInfo
func encodeSignerInfo(pubKey []byte, sequence uint64) []byte {
	var b []byte
	b = appendMessage(b, 1, encodeAny(Secp256k1PubKeyTypeURL, encodePubKey(pubKey)))
	b = appendMessage(b, 2, encodeModeInfoDirect())
	b = appendUvarint(b, 3, sequence)

	return b
}

// cosmos.tx.v1beta1.Fee
func encodeFee(coins [][]byte, gasLimit uint64) []byte {
	var b []byte
	for _, c := range coins {
		b = appendMessage(b, 1, c)
	}

	b = appendUvarint(b, 2, gasLimit)

	return b
}

// cosmos.tx.v1beta1.AuthInfo
func encodeAuthInfo(signerInfo, fee []byte) []byte {
	var b []byte
	b = appendMessage(b, 1, signerInfo)
	b = appendMessage(b, 2, fee)

	return b
}

// cosmos.tx.v1beta1.TxBody
func encodeTxBody(msgs [][]byte, memo string) []byte {
	var b []byte
	for _, m := range msgs {
		b = appendMessage(b, 1, m)
	}

	b = appendString(b, 2, memo)

	return b
}

// cosmos.tx.v1beta1.SignDoc
func encodeSignDoc(bodyBytes, authInfoBytes []byte, chainID string, accountNumber uint64) []byte {
	var b []byte
	b = appendBytes(b, 1, bodyBytes)
	b = appendBytes(b, 2, authInfoBytes)
	b = appendString(b, 3, chainID)
	b = appendUvarint(b, 4, accountNumber)

	return b
}

// cosmos.tx.v1beta1.TxRaw
func encodeTxRaw(bodyBytes, authInfoBytes []byte, signatures [][]byte) []byte {
	var b []byte
	b = appendBytes(b, 1, bodyBytes)
	b = appendBytes(b, 2, authInfoBytes)

	for _, sig := range signatures {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, sig)
	}

	return b
}
