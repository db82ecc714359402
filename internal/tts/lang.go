package tts

import (
	"strings"

	"github.com/abadojack/whatlanggo"

	"github.com/nganlinh4/voicepipe/internal/config"
)

// InstructionForText 检测文本语言并返回配置中匹配的朗读指令。
// 条件中的语言代码为 ISO 639-3（如 vie、kor、eng）。文本太短或
// 无法识别时返回空串。
func InstructionForText(text string, conditions []config.LanguageCondition) string {
	lang := whatlanggo.DetectLang(text)
	if lang == -1 {
		return ""
	}
	code := lang.Iso6393()

	for _, cond := range conditions {
		if strings.EqualFold(cond.Code, code) {
			return cond.Instruction
		}
	}
	return ""
}

// TargetLangCode 返回翻译接口使用的两字母目标语言代码。
// 识别不出来时回退到英语。
func TargetLangCode(text string) string {
	switch whatlanggo.DetectLang(text) {
	case whatlanggo.Vie:
		return "vi"
	case whatlanggo.Kor:
		return "ko"
	case whatlanggo.Jpn:
		return "ja"
	case whatlanggo.Cmn:
		return "zh"
	case whatlanggo.Fra:
		return "fr"
	case whatlanggo.Deu:
		return "de"
	case whatlanggo.Spa:
		return "es"
	case whatlanggo.Rus:
		return "ru"
	case whatlanggo.Ita:
		return "it"
	default:
		return "en"
	}
}
