package usecase

import "app/internal/domain/model"

// 入荷した商品をどの小売に回すかを決める純関数。
// 候補はロールで絞った上で渡す。差し替え可能にしておく（近接・専門・負荷分散など）。
type AssignmentPolicy func(producerID int64, cropType string, candidates []model.User) (int64, error)

// 現行ポリシー: 最初に見つかったRETAILERを返す。
// producerIDとcropTypeは見ない（将来のポリシーのためにシグネチャだけ揃えてある）。
func FirstRetailerPolicy(producerID int64, cropType string, candidates []model.User) (int64, error) {
	for _, c := range candidates {
		if c.Role == model.RoleRetailer {
			return c.ID, nil
		}
	}
	return 0, NewNotFoundError("retailer", 0)
}
