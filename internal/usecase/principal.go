package usecase

import "app/internal/domain/model"

// 認証済みの呼び出し主体。JWTミドルウェアが検証した値だけを詰める。
// リクエストボディのuser_idやroleは一切信用しない。
type Principal struct {
	UserID int64
	Role   model.Role
}

func (p Principal) Valid() bool {
	return p.UserID > 0 && p.Role.Valid()
}
