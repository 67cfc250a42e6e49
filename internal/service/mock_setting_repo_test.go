package service

import (
	"github.com/fenxiao-next/internal/models"
)

// mockSettingRepo 内存版设置仓库，供服务层测试使用
type mockSettingRepo struct {
	data map[string]models.JSON
}

func newMockSettingRepo() *mockSettingRepo {
	return &mockSettingRepo{data: make(map[string]models.JSON)}
}

func (r *mockSettingRepo) GetByKey(key string) (*models.Setting, error) {
	value, ok := r.data[key]
	if !ok {
		return nil, nil
	}
	return &models.Setting{Key: key, ValueJSON: value}, nil
}

func (r *mockSettingRepo) Upsert(key string, value models.JSON) (*models.Setting, error) {
	r.data[key] = value
	return &models.Setting{Key: key, ValueJSON: value}, nil
}
