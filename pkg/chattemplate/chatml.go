package chattemplate

import "github.com/germanamz/phoenix/pkg/toolcall"

// chatMLSource is the ChatML layout with Hermes-style function calling, as
// used by the Qwen instruct models.
const chatMLSource = `{%- if tools -%}
<|im_start|>system
{% if system %}{{ system|safe }}

{% endif %}# Tools

You may call one or more functions to assist with the user query.

You are provided with function signatures within <tools></tools> XML tags:
<tools>
{% for tool in tools %}{{ tool|safe }}
{% endfor %}</tools>

For each function call, return a json object with function name and arguments within <tool_call></tool_call> XML tags:
<tool_call>
{"name": <function-name>, "arguments": <args-json-object>}
</tool_call><|im_end|>
{% elif system -%}
<|im_start|>system
{{ system|safe }}<|im_end|>
{% endif -%}
{%- for message in messages -%}
<|im_start|>{{ message.role }}
{{ message.content|safe }}<|im_end|>
{% endfor -%}
{%- if add_generation_prompt -%}
<|im_start|>assistant
{% endif -%}`

// ChatMLStop is the end-of-turn marker of ChatML.
const ChatMLStop = "<|im_end|>"

// ChatML returns the built-in ChatML template with Hermes tool calling.
func ChatML() *Template {
	t, err := New(Options{
		Name:     "chatml-hermes",
		Source:   chatMLSource,
		Protocol: toolcall.Hermes,
		Stop:     []string{ChatMLStop},
	})
	if err != nil {
		panic(err)
	}

	return t
}
