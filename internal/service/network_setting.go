package service

import (
	"fmt"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"
)

const (
	networkCommissionLevelsMin = 1
	networkCommissionLevelsMax = constants.CommissionMaxLevels
	networkTreeDepthMin        = 1
	networkTreeDepthMax        = constants.NetworkTreeMaxDepth
)

// NetworkSetting 分销网络配置
type NetworkSetting struct {
	Enabled          bool `json:"enabled"`
	CommissionLevels int  `json:"commission_levels"`
	TreeDepth        int  `json:"tree_depth"`
	PointsEnabled    bool `json:"points_enabled"`
}

// NetworkDefaultSetting 默认分销网络配置
func NetworkDefaultSetting() NetworkSetting {
	return NormalizeNetworkSetting(NetworkSetting{
		Enabled:          true,
		CommissionLevels: constants.CommissionMaxLevels,
		TreeDepth:        constants.NetworkTreeMaxDepth,
		PointsEnabled:    true,
	})
}

// NormalizeNetworkSetting 归一化分销网络配置
func NormalizeNetworkSetting(setting NetworkSetting) NetworkSetting {
	if setting.CommissionLevels < networkCommissionLevelsMin {
		setting.CommissionLevels = networkCommissionLevelsMin
	}
	if setting.CommissionLevels > networkCommissionLevelsMax {
		setting.CommissionLevels = networkCommissionLevelsMax
	}
	if setting.TreeDepth < networkTreeDepthMin {
		setting.TreeDepth = networkTreeDepthMin
	}
	if setting.TreeDepth > networkTreeDepthMax {
		setting.TreeDepth = networkTreeDepthMax
	}
	return setting
}

// ValidateNetworkSetting 校验分销网络配置
func ValidateNetworkSetting(setting NetworkSetting) error {
	normalized := NormalizeNetworkSetting(setting)
	if normalized.CommissionLevels < networkCommissionLevelsMin || normalized.CommissionLevels > networkCommissionLevelsMax {
		return fmt.Errorf("%w: 佣金层级必须在 %d-%d 之间", ErrNetworkConfigInvalid, networkCommissionLevelsMin, networkCommissionLevelsMax)
	}
	if normalized.TreeDepth < networkTreeDepthMin || normalized.TreeDepth > networkTreeDepthMax {
		return fmt.Errorf("%w: 网络树深度必须在 %d-%d 之间", ErrNetworkConfigInvalid, networkTreeDepthMin, networkTreeDepthMax)
	}
	return nil
}

// NetworkSettingToMap 将分销网络配置转换为 settings 存储结构
func NetworkSettingToMap(setting NetworkSetting) map[string]interface{} {
	normalized := NormalizeNetworkSetting(setting)
	return map[string]interface{}{
		"enabled":           normalized.Enabled,
		"commission_levels": normalized.CommissionLevels,
		"tree_depth":        normalized.TreeDepth,
		"points_enabled":    normalized.PointsEnabled,
	}
}

func networkSettingFromJSON(raw models.JSON, fallback NetworkSetting) NetworkSetting {
	result := fallback

	if enabledRaw, ok := raw["enabled"]; ok {
		result.Enabled = parseSettingBool(enabledRaw)
	}
	if levelsRaw, ok := raw["commission_levels"]; ok {
		if parsed, err := parseSettingInt(levelsRaw); err == nil {
			result.CommissionLevels = parsed
		}
	}
	if depthRaw, ok := raw["tree_depth"]; ok {
		if parsed, err := parseSettingInt(depthRaw); err == nil {
			result.TreeDepth = parsed
		}
	}
	if pointsRaw, ok := raw["points_enabled"]; ok {
		result.PointsEnabled = parseSettingBool(pointsRaw)
	}

	return NormalizeNetworkSetting(result)
}

func normalizeNetworkSettingMap(value map[string]interface{}) models.JSON {
	setting := networkSettingFromJSON(models.JSON(value), NetworkDefaultSetting())
	return models.JSON(NetworkSettingToMap(setting))
}

// GetNetworkSetting 获取分销网络设置（优先 settings，空时回退默认）
func (s *SettingService) GetNetworkSetting() (NetworkSetting, error) {
	fallback := NetworkDefaultSetting()
	if s == nil {
		return fallback, nil
	}

	value, err := s.GetByKey(constants.SettingKeyNetworkConfig)
	if err != nil {
		return fallback, err
	}
	if value == nil {
		return fallback, nil
	}
	return networkSettingFromJSON(value, fallback), nil
}

// UpdateNetworkSetting 更新分销网络设置
func (s *SettingService) UpdateNetworkSetting(setting NetworkSetting) (NetworkSetting, error) {
	normalized := NormalizeNetworkSetting(setting)
	if err := ValidateNetworkSetting(normalized); err != nil {
		return NetworkDefaultSetting(), err
	}
	if _, err := s.Update(constants.SettingKeyNetworkConfig, NetworkSettingToMap(normalized)); err != nil {
		return NetworkDefaultSetting(), err
	}
	return normalized, nil
}
