package tts

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nganlinh4/voicepipe/internal/logger"
)

const geminiEndpoint = "wss://generativelanguage.googleapis.com/ws/" +
	"google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

// geminiClient 持有一条 Gemini Live 连接。
// 每个请求单独建连，turn 结束后关闭，避免上下文在服务端累积。
type geminiClient struct {
	conn    *websocket.Conn
	session string // 连接标识，仅用于日志关联
}

// dialGemini 建立到 Gemini Live 的 TLS WebSocket 连接。
func dialGemini(apiKey string) (*geminiClient, error) {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(geminiEndpoint+"?key="+apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("连接 Gemini Live 失败: %w", err)
	}

	return &geminiClient{
		conn:    conn,
		session: uuid.New().String(),
	}, nil
}

func (c *geminiClient) close() {
	_ = c.conn.Close()
}

// setupMessage 是会话协商消息，声明模型、音频输出与系统指令。
type setupMessage struct {
	Setup struct {
		Model            string `json:"model"`
		GenerationConfig struct {
			ResponseModalities []string `json:"responseModalities"`
			SpeechConfig       struct {
				VoiceConfig struct {
					PrebuiltVoiceConfig struct {
						VoiceName string `json:"voiceName"`
					} `json:"prebuiltVoiceConfig"`
				} `json:"voiceConfig"`
			} `json:"speechConfig"`
			ThinkingConfig struct {
				ThinkingBudget int `json:"thinkingBudget"`
			} `json:"thinkingConfig"`
		} `json:"generationConfig"`
		SystemInstruction struct {
			Parts []textPart `json:"parts"`
		} `json:"systemInstruction"`
	} `json:"setup"`
}

type textPart struct {
	Text string `json:"text"`
}

// clientContentMessage 携带要朗读的文本，一条消息即一个完整 turn。
type clientContentMessage struct {
	ClientContent struct {
		Turns []struct {
			Role  string     `json:"role"`
			Parts []textPart `json:"parts"`
		} `json:"turns"`
		TurnComplete bool `json:"turnComplete"`
	} `json:"clientContent"`
}

// serverMessage 覆盖服务端下行消息中本客户端关心的字段。
type serverMessage struct {
	SetupComplete *struct{} `json:"setupComplete"`
	ServerContent *struct {
		ModelTurn *struct {
			Parts []struct {
				InlineData *struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"modelTurn"`
		TurnComplete       bool `json:"turnComplete"`
		GenerationComplete bool `json:"generationComplete"`
	} `json:"serverContent"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// buildSystemInstruction 按语速档位与可选的语言指令拼出系统指令。
func buildSystemInstruction(speed, languageInstruction string) string {
	text := "You are a text-to-speech reader. Your ONLY job is to read the user's text out loud, " +
		"exactly as written, word for word. Do NOT respond conversationally. " +
		"Do NOT add commentary. Do NOT ask questions. "

	switch speed {
	case "Slow":
		text += "Speak slowly, clearly, and with deliberate pacing. "
	case "Fast":
		text += "Speak quickly, efficiently, and with a brisk pace. "
	default:
		text += "Simply read the provided text aloud naturally and clearly. "
	}

	if languageInstruction != "" {
		text += languageInstruction + " "
	}

	text += "Start reading immediately."
	return text
}

// sendSetup 发送会话协商消息。
func (c *geminiClient) sendSetup(model, voice, speed, languageInstruction string) error {
	var msg setupMessage
	msg.Setup.Model = "models/" + model
	msg.Setup.GenerationConfig.ResponseModalities = []string{"AUDIO"}
	msg.Setup.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName = voice
	msg.Setup.GenerationConfig.ThinkingConfig.ThinkingBudget = 0
	msg.Setup.SystemInstruction.Parts = []textPart{
		{Text: buildSystemInstruction(speed, languageInstruction)},
	}

	return c.writeJSON(&msg)
}

// sendText 发送要朗读的文本，turnComplete 标记 turn 结束。
func (c *geminiClient) sendText(text string) error {
	var msg clientContentMessage
	turn := struct {
		Role  string     `json:"role"`
		Parts []textPart `json:"parts"`
	}{
		Role: "user",
		// 显式前缀要求逐字朗读，抑制模型的对话倾向
		Parts: []textPart{{Text: "[READ ALOUD VERBATIM - START NOW]\n\n" + text}},
	}
	msg.ClientContent.Turns = append(msg.ClientContent.Turns, turn)
	msg.ClientContent.TurnComplete = true

	return c.writeJSON(&msg)
}

func (c *geminiClient) writeJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("编码消息失败: %w", err)
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("发送消息失败: %w", err)
	}
	return nil
}

// readMessage 在给定期限内读取一条下行消息。
// 超时返回 (nil, false, nil)，便于调用方轮询打断代数后重试；
// 连接关闭或出错时 closed 为 true。
func (c *geminiClient) readMessage(deadline time.Duration) (msg []byte, closed bool, err error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(deadline))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, false, nil
		}
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, true, nil
		}
		return nil, true, err
	}
	return data, false, nil
}

// waitSetupComplete 等待服务端确认会话协商。
// 每轮短超时后调用 stale 检查打断，整体上限 timeout。
func (c *geminiClient) waitSetupComplete(timeout time.Duration, stale func() bool) bool {
	start := time.Now()
	for time.Since(start) < timeout {
		if stale() {
			return false
		}

		data, closed, err := c.readMessage(250 * time.Millisecond)
		if err != nil || closed {
			return false
		}
		if data == nil {
			continue
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.SetupComplete != nil {
			return true
		}
		if msg.Error != nil {
			logger.Warnf("[tts] gemini 会话协商被拒 (session=%s): %s", c.session, msg.Error.Message)
			return false
		}
	}
	return false
}

// parseAudioData 从下行消息中提取并解码全部音频分块。
// 没有音频时返回 nil；坏的 base64 片段跳过，不中断流。
func parseAudioData(data []byte) []byte {
	var msg serverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil
	}
	if msg.ServerContent == nil || msg.ServerContent.ModelTurn == nil {
		return nil
	}

	var audio []byte
	for _, part := range msg.ServerContent.ModelTurn.Parts {
		if part.InlineData == nil || part.InlineData.Data == "" {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
		if err != nil {
			continue
		}
		audio = append(audio, decoded...)
	}
	return audio
}

// isTurnComplete 判断下行消息是否标记 turn 结束。
func isTurnComplete(data []byte) bool {
	var msg serverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return false
	}
	if msg.ServerContent == nil {
		return false
	}
	return msg.ServerContent.TurnComplete || msg.ServerContent.GenerationComplete
}
