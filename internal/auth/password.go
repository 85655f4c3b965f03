package auth

import "golang.org/x/crypto/bcrypt"

// Hasher はパスワードのハッシュ化と検証を提供します。
type Hasher struct {
	cost int
}

// NewHasher は指定コストの Hasher を作成します。
func NewHasher(cost int) *Hasher {
	return &Hasher{cost: cost}
}

// Hash は平文パスワードを bcrypt でハッシュ化します。ソルトは呼び出しごとに異なります。
func (h *Hasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify は平文パスワードを保存済みハッシュと照合します。
// 不一致は (false, nil)、bcrypt 内部のエラーは不一致扱いにせずそのまま返します。
func (h *Hasher) Verify(plaintext, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err == nil {
		return true, nil
	}
	if err == bcrypt.ErrMismatchedHashAndPassword {
		return false, nil
	}
	return false, err
}
