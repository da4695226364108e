package domain

import "time"

// AccessKeyGrant records a function-call key the relayer added on behalf of
// a caller.
type AccessKeyGrant struct {
	PublicKey   string
	AccountId   string
	ReceiverId  string
	MethodNames []string
	Allowance   string
	TxHash      string
	CreatedAt   int64
	RevokedAt   int64
}

func NewAccessKeyGrant(
	publicKey, accountId, receiverId string, methodNames []string, allowance string,
) AccessKeyGrant {
	return AccessKeyGrant{
		PublicKey:   publicKey,
		AccountId:   accountId,
		ReceiverId:  receiverId,
		MethodNames: methodNames,
		Allowance:   allowance,
		CreatedAt:   time.Now().Unix(),
	}
}

func (g AccessKeyGrant) IsRevoked() bool {
	return g.RevokedAt > 0
}
