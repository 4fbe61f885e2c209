package corpus

import (
	"strings"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/model"
)

// Tier assignment tables. Terms are matched case-insensitively against the
// whole keyword; a keyword containing a tier marker as a substring inherits
// that tier. Critical wins over high, high over medium; everything else is
// general.
//
// The markers intentionally cover the major trafficking languages in the
// corpus (en, es, pt, fr, zh, ru, ar, vi).

var criticalMarkers = []string{
	// Wildlife: CITES Appendix I material.
	"ivory", "marfil", "marfim", "ivoire", "象牙", "слоновая кость", "عاج",
	"rhino horn", "cuerno de rinoceronte", "犀牛角", "рог носорога",
	"pangolin", "pangolín", "穿山甲", "панголин",
	"tiger bone", "hueso de tigre", "虎骨",
	"bear bile", "bilis de oso", "熊胆",
	"totoaba", "hawksbill", "carey",
	// Human trafficking: coded service terms.
	"escort service", "outcall", "incall",
	"full service massage", "servicio completo",
}

var highMarkers = []string{
	"tortoise shell", "turtle shell", "concha de tortuga", "龟甲",
	"shark fin", "aleta de tiburón", "鱼翅",
	"leopard skin", "piel de leopardo", "豹皮",
	"elephant hair", "seahorse", "caballito de mar", "海马",
	"coral", "coral rojo", "红珊瑚",
	"taxidermy", "taxidermia",
	"body massage", "masaje corporal", "按摩服务",
	"private meeting", "companion service",
}

var mediumMarkers = []string{
	"antique bone", "hueso antiguo", "exotic leather", "cuero exótico",
	"feather art", "tribal artifact", "snake wine", "蛇酒",
	"traditional medicine", "medicina tradicional", "中药材",
	"massage", "masaje", "spa service",
}

// tierFor assigns the priority tier for a lowercased keyword.
func tierFor(key string) model.Tier {
	for _, m := range criticalMarkers {
		if strings.Contains(key, m) {
			return model.TierCritical
		}
	}
	for _, m := range highMarkers {
		if strings.Contains(key, m) {
			return model.TierHigh
		}
	}
	for _, m := range mediumMarkers {
		if strings.Contains(key, m) {
			return model.TierMedium
		}
	}
	return model.TierGeneral
}

// fallbackKeywords is the embedded critical-only set used when the corpus
// file is missing. Coverage is deliberately narrow; the real corpus carries
// 1,400+ terms across 16 languages.
var fallbackKeywords = []model.Keyword{
	{Text: "ivory carving", Language: "en", Tier: model.TierCritical},
	{Text: "rhino horn", Language: "en", Tier: model.TierCritical},
	{Text: "pangolin scales", Language: "en", Tier: model.TierCritical},
	{Text: "tiger bone", Language: "en", Tier: model.TierCritical},
	{Text: "bear bile", Language: "en", Tier: model.TierCritical},
	{Text: "hawksbill shell", Language: "en", Tier: model.TierCritical},
	{Text: "marfil antiguo", Language: "es", Tier: model.TierCritical},
	{Text: "cuerno de rinoceronte", Language: "es", Tier: model.TierCritical},
	{Text: "象牙雕刻", Language: "zh", Tier: model.TierCritical},
	{Text: "犀牛角", Language: "zh", Tier: model.TierCritical},
	{Text: "слоновая кость", Language: "ru", Tier: model.TierCritical},
	{Text: "escort service", Language: "en", Tier: model.TierCritical},
	{Text: "outcall massage", Language: "en", Tier: model.TierCritical},
	{Text: "servicio completo discreto", Language: "es", Tier: model.TierCritical},
}
