// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package signals

import "github.com/AleutianAI/nova-discovery/services/discovery/conversation"

// summaryMarkers identify a rendered project summary. Matching is on
// lowercased text.
var summaryMarkers = []string{
	"📋",
	"project summary",
	"rezumatul proiectului",
	"résumé du projet",
	"projektzusammenfassung",
	"resumen del proyecto",
	"riepilogo del progetto",
	"сводка проекта",
	"项目摘要",
	"プロジェクト概要",
}

// setKeywords holds, per quick-reply set, lowercase phrases that show up in
// an assistant question about that topic. Locales: en, ro, fr, de, es, it,
// ru, zh, ja. Order matters for ties.
var setKeywords = []struct {
	set      conversation.OptionSet
	keywords map[string][]string
}{
	{conversation.OptionsBudget, map[string][]string{
		"en": {"budget"},
		"ro": {"buget"},
		"fr": {"budget"},
		"de": {"budget"},
		"es": {"presupuesto"},
		"it": {"budget"},
		"ru": {"бюджет"},
		"zh": {"预算"},
		"ja": {"予算"},
	}},
	{conversation.OptionsTimeline, map[string][]string{
		"en": {"timeline", "deadline", "when would you like"},
		"ro": {"termen", "când ai vrea"},
		"fr": {"délai", "échéance", "calendrier"},
		"de": {"zeitplan", "zeitrahmen", "deadline"},
		"es": {"plazo", "cronograma"},
		"it": {"tempistic", "scadenz"},
		"ru": {"срок"},
		"zh": {"时间表", "期限"},
		"ja": {"スケジュール", "期限"},
	}},
	{conversation.OptionsStage, map[string][]string{
		"en": {"current stage", "where is the project", "where are you now"},
		"ro": {"stadiu", "în ce etapă"},
		"fr": {"à quel stade", "où en est"},
		"de": {"aktuellen stand", "welchem stadium"},
		"es": {"etapa", "en qué punto"},
		"it": {"fase attuale", "a che punto"},
		"ru": {"стади", "этап"},
		"zh": {"阶段"},
		"ja": {"段階"},
	}},
	{conversation.OptionsScale, map[string][]string{
		"en": {"how many users", "expected scale"},
		"ro": {"câți utilizatori"},
		"fr": {"combien d'utilisateurs"},
		"de": {"wie viele nutzer", "wie viele benutzer"},
		"es": {"cuántos usuarios"},
		"it": {"quanti utenti"},
		"ru": {"сколько пользователей"},
		"zh": {"多少用户"},
		"ja": {"ユーザー数"},
	}},
	{conversation.OptionsAudience, map[string][]string{
		"en": {"target audience", "primary users"},
		"ro": {"public țintă", "utilizatorii principali"},
		"fr": {"public cible", "utilisateurs principaux"},
		"de": {"zielgruppe", "hauptnutzer"},
		"es": {"público objetivo", "usuarios principales"},
		"it": {"pubblico", "utenti principali"},
		"ru": {"аудитор"},
		"zh": {"目标用户"},
		"ja": {"ターゲット"},
	}},
	{conversation.OptionsIndustry, map[string][]string{
		"en": {"industry", "which domain"},
		"ro": {"industrie", "domeniu"},
		"fr": {"secteur", "industrie"},
		"de": {"branche", "industrie"},
		"es": {"industria", "sector"},
		"it": {"settore", "industria"},
		"ru": {"отрасл"},
		"zh": {"行业"},
		"ja": {"業界"},
	}},
	{conversation.OptionsProjectType, map[string][]string{
		"en": {"type of product", "kind of product"},
		"ro": {"tip de produs"},
		"fr": {"type de produit"},
		"de": {"produkttyp", "art von produkt"},
		"es": {"tipo de producto"},
		"it": {"tipo di prodotto"},
		"ru": {"тип продукта"},
		"zh": {"产品类型"},
		"ja": {"製品の種類", "プロダクトの種類"},
	}},
}
