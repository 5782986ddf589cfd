// Package incident はインシデント報告を扱う。
//
// 報告はLinearにイシューとして起票し、その結果をSlackに通知する。
// 台帳（Store）が設定されている場合は、テナントごとに報告を記録する。
// 台帳への記録に失敗しても報告自体は失敗させない。
package incident
