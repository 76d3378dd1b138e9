package analyzer

// Prompt templates. Placeholders are substituted with strings.Replace; every
// JSON-returning prompt pins the exact shape the decoder expects.

const emotionPrompt = `
你是一位情绪识别专家，请分析以下对话中对方当前的情绪状态。

对话内容：
{current_message}
对话上下文：
{context_history}

请分析：
1. 当前情绪值（1-10分，1表示极度负面，10表示极度正面）
2. 主导情绪（选择：喜悦、愤怒、悲伤、恐惧、惊讶、厌恶、兴奋、期待、焦虑、失望、困惑、满足）
3. 潜在需求（情感需求、信息需求、行动需求）
4. 情绪变化趋势（上升、下降、稳定）

请以JSON格式返回结果：
{
    "emotion_score": 情绪值,
    "dominant_emotion": "主导情绪",
    "potential_needs": ["需求1", "需求2"],
    "emotion_trend": "情绪趋势"
}
`

const personaPrompt = `
你是一位专业的性格分析师，请根据以下对话内容分析对方的性格特征。

对话历史：
{conversation_history}

请从以下维度分析对方性格：
1. MBTI倾向（E/I, S/N, T/F, J/P）
2. 依恋类型（安全型、焦虑型、回避型、混乱型）
3. 沟通风格（直接型、间接型、幽默型、严肃型）
4. 主要性格特征（3-5个关键词）

请以JSON格式返回分析结果：
{
    "mbti": {
        "ei": "外向/内向程度和描述",
        "sn": "实感/直觉偏好和描述",
        "tf": "思考/情感倾向和描述",
        "jp": "判断/感知方式和描述"
    },
    "attachment_type": "依恋类型和描述",
    "communication_style": "沟通风格和描述",
    "key_traits": ["特征1", "特征2", "特征3"]
}
`

const topicPrompt = `
你是一位对话话题分析专家，请识别当前对话的核心话题。

对话历史：
{context_history}

最新消息：
{current_message}

请提取：
1. 核心话题（Keywords）
2. 话题类别（如：工作、生活、爱好、情感、新闻等）
3. 话题深度（1-5，1为寒暄，5为深层价值观）

请以JSON格式返回：
{
    "topics": ["话题1", "话题2"],
    "category": "类别",
    "depth": 3
}
`

const searchIntentPrompt = `
你是一位专业的对话分析专家，请判断以下对话是否需要搜索外部信息。

判断标准（请严格执行）：
1. 涉及【具体事实、新闻、数据、天气、百科知识】等需要验证的信息 -> need_search: true
2. 涉及【时间敏感】词汇（如：最新、最近、明天、今天） -> need_search: true
3. 涉及【未知实体】或【具体作品/人物】详情 -> need_search: true
4. 纯闲聊/情感/观点表达 -> need_search: false

示例：
- "明天北京天气如何" -> true
- "你知道周杰伦吗" -> true (获取最新信息)
- "我好难过" -> false

对方最新消息：{current_message}
对话上下文：{context_history}

请以JSON格式返回（必须包含need_search字段）：
{
    "need_search": true,  // 注意：必须是布尔值true或false，不要用字符串
    "search_keywords": "关键词1 关键词2",
    "search_purpose": "搜索目的描述",
    "entities_detected": ["实体1", "实体2"]
}
`

const relationshipPrompt = `
你是一位恋爱关系分析专家，请根据对话历史分析当前两人的关系状态。

对话历史：
{conversation_history}

请从以下维度进行评分（0-100）并给出理由：
1. 兴趣契合度 (Interest Match): 双方共同话题和兴趣的重合度
2. 情感联结度 (Emotional Connection): 情绪共鸣和依赖程度
3. 沟通质量 (Communication Quality): 回复积极性、深度和流畅度
4. 承诺/安全感 (Commitment/Safety): 关系的稳定性和排他性暗示
5. 肢体/暧昧指数 (Intimacy/Flirtation): 肢体接触提及或暧昧语言浓度

请以JSON格式返回：
{
    "relationship_stage": "当前阶段",
    "intimacy_level": 1,
    "radar": {
        "interest_match": {"score": 80, "reason": "..."},
        "emotional_connection": {"score": 70, "reason": "..."},
        "communication_quality": {"score": 85, "reason": "..."},
        "commitment_safety": {"score": 40, "reason": "..."},
        "intimacy_flirtation": {"score": 60, "reason": "..."}
    },
    "overall_analysis": "整体关系评价"
}
`

const stateUpdatePrompt = `
你是一位关系状态管理员，请判断基于最新的对话，关系阶段或亲密度是否发生了质的变化。

对话历史：
{conversation_history}

当前状态：
- 阶段：{current_stage}
- 亲密度：{current_intimacy}

判断逻辑：
- 只有在发生重大事件（如表白成功、明确拒绝、首次深度争吵、首次约会成功等）时才变更阶段。
- 亲密度可根据最近几轮对话的氛围微调（+/- 1-2分）。

请以JSON格式返回：
{
    "should_update_stage": true/false,
    "new_stage": "新阶段",
    "new_intimacy": 新数值,
    "radar_update": { ... }, // 仅当有显著变化时更新雷达图数据，否则留空
    "overall_analysis": "分析说明",
    "reason": "变更理由"
}
`

const subtextPrompt = `
你是恋爱读心神探，敏锐洞察潜台词，请分析对方这句话背后的真实含义。

对方消息：{target_message}
对话上下文：{context_history}
关系阶段：{relationship_stage}

请分析：
1. 表面含义
2. 潜台词（Subtext）：对方真正想表达的（如：求关注、测试诚意、拒绝、暗示邀约等）
3. 情绪底色
4. 应对建议

请以JSON格式返回：
{
    "surface_meaning": "...",
    "subtext": "...",
    "emotion_base": "...",
    "suggestion": "..."
}
`

const factExtractionPrompt = `
你是一位信息提取专家，请从对话中提取关于用户的客观事实（User Facts）。
只提取用户（我方）自我披露的信息，如爱好、职业、经历、偏好等。

对话内容：
{conversation_text}

请以JSON格式返回：
{
    "facts": ["事实1", "事实2"]
}
`

const chatReviewPrompt = `
你是一位资深情感咨询师和沟通教练，请对用户提供的一段聊天记录进行复盘分析。

聊天记录：
{conversation_history}

分析目标：
帮助用户识别聊天中的亮点（加分项）和问题（扣分项），并给出改进建议。

请分析：
1. 高光时刻 (Highlights)：
   - 找出对话中表现最好的 1-3 个时刻。
   - 说明为什么好（如：情绪价值提供到位、幽默感强、推拉得当、共情能力强）。
2. 扣分项 (Lowlights)：
   - 找出对话中表现不佳的 1-3 个时刻。
   - 说明为什么不好（如：查户口式提问、情绪冷处理、话题终结、需求感过强）。
   - 给出具体的改进建议（当时应该怎么说）。
3. 总体评分与建议：
   - 给本次聊天打分（0-100）。
   - 给出一段简短的总结评价。

请以 JSON 格式返回结果：
{
    "highlights": [
        {
            "content": "原文片段",
            "reason": "高光理由"
        }
    ],
    "lowlights": [
        {
            "content": "原文片段",
            "reason": "扣分理由",
            "suggestion": "建议回复"
        }
    ],
    "score": 85,
    "summary": "总结评价"
}
`

const profileSummaryPrompt = `
你是一位深情的伴侣，请根据以下关于你的事实和当前关系，写一段自我介绍或总结。

关于我的事实：
{user_facts}

关系阶段：{relationship_stage}
亲密度：{intimacy_level}

请以第一人称口吻，结合事实，写一段温暖的、符合当前关系的自我描述。
`

const imageAnalysisPrompt = `
你是一位恋爱助手，用户发送了一张图片，请结合当前关系阶段进行分析并给出回复建议。

关系阶段：{relationship_stage}
亲密度：{intimacy_level}
对方画像：{persona}

请分析图片内容，并给出：
1. 图片内容描述
2. 对方发送此图的心理动机
3. 建议的回复方向（既要切题又要能拉近关系）

请直接返回分析文本。
`

const feedbackCorrectionPrompt = `
你是一位善于反思的伴侣，用户对你刚才的回复表示不满意，请进行修正。

【背景】
原回复：{original_reply}
用户反馈/不喜欢理由：{feedback_reason}
当前关系：{relationship_stage} (亲密度: {intimacy_level})

请分析问题所在，总结一条可复用的策略教训，并重新生成一个更好的回复。

返回格式：
{
    "analysis": "问题分析",
    "strategy_adjustment": "策略调整建议",
    "lesson": "一句话策略教训",
    "new_reply": "修正后的回复"
}
`
