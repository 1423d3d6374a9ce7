package analyzer

// analysisPrompt is the prompt template for task analysis.
const analysisPrompt = `Break this business task into sub-tasks, each scoped to a single domain of work.

Task:
%s

Return ONLY a JSON object with this exact structure (no other text):
{
  "subtasks": [
    {
      "description": "What this sub-task accomplishes",
      "domain": "marketing|support|finance|operations|generic"
    }
  ],
  "domains": ["marketing", "support"],
  "estimated_complexity": "low|medium|high"
}

Guidelines:
- Each sub-task should be completable by one specialist in one session
- domain names a single area of expertise; use "generic" when none fits
- domains lists every distinct domain appearing in subtasks
- estimated_complexity reflects the whole task: "low" for a single simple
  deliverable, "medium" for multi-part work, "high" for cross-domain work
  with interdependencies
- Prefer fewer, larger sub-tasks over many small ones`
