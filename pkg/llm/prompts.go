package llm

import "fmt"

// Prompts are in French, matching the legal corpus the service analyzes.
// Each instructs the model to answer with a JSON array so responses can be
// decoded by ExtractRecords.

const systemExtractClauses = `Vous êtes un expert juridique spécialisé dans l'analyse de contrats. Votre tâche est d'extraire TOUTES les clauses importantes du document fourni, même si elles sont implicites ou peu formalisées. Si le document ne contient pas de clauses explicites, identifiez les obligations, les droits et les restrictions implicites.

Vous devez identifier le type de chaque clause parmi les options suivantes EXACTEMENT:
- obligation
- restriction
- right
- termination
- confidentiality
- intellectual_property
- liability
- payment
- duration
- other

Le niveau de risque doit être un nombre entier entre 1 et 5, où:
1 = Très faible
2 = Faible
3 = Moyen
4 = Élevé
5 = Très élevé
`

const jsonInstructionsClauses = `Répondez au format JSON suivant:
[
  {
    "title": "Titre de la clause",
    "content": "Contenu exact de la clause",
    "type": "type_de_clause",
    "risk_level": niveau_de_risque,
    "analysis": "Analyse juridique de la clause"
  },
  ...
]`

func promptExtractClauses(documentText, documentType string) string {
	return fmt.Sprintf(`Analysez le document juridique suivant de type %s et extrayez les clauses importantes.
Pour chaque clause, fournissez:
1. Un titre descriptif
2. Le contenu exact de la clause
3. Le type de clause (UNIQUEMENT un de ces termes exacts: obligation, restriction, right, termination, confidentiality, intellectual_property, liability, payment, duration, other)
4. Le niveau de risque (UNIQUEMENT un nombre entier entre 1 et 5)
5. Une analyse juridique de la clause

Document:
%s

Si le document ne contient pas de clauses explicites, identifiez les éléments implicites.

`, documentType, documentText) + jsonInstructionsClauses
}

const systemRecommendations = `Vous êtes un expert juridique spécialisé dans l'analyse de contrats.
Votre tâche est de générer des recommandations pertinentes basées sur les clauses extraites d'un document juridique.

Les priorités doivent être exprimées en nombres entiers avec:
1 = Basse priorité
2 = Priorité moyenne
3 = Haute priorité
`

const jsonInstructionsRecommendations = `Répondez au format JSON suivant:
[
  {
    "title": "Titre de la recommandation",
    "description": "Description détaillée",
    "priority": niveau_de_priorité,
    "suggested_text": "Texte suggéré (si applicable)",
    "related_clauses": ["Titre de la clause 1", "Titre de la clause 2", ...]
  },
  ...
]`

func promptRecommendations(clausesJSON, documentType string) string {
	return fmt.Sprintf(`Sur la base des clauses suivantes extraites d'un document juridique de type %s, générez des recommandations pertinentes pour améliorer le contrat ou atténuer les risques identifiés.

Clauses extraites:
%s

Pour chaque recommandation, fournissez:
1. Un titre descriptif
2. Une description détaillée
3. Une priorité (1, 2 ou 3)
4. Un texte suggéré (si applicable)
5. Les titres des clauses concernées

Si le document manque de clauses essentielles, suggérez l'ajout de ces clauses.

`, documentType, clausesJSON) + jsonInstructionsRecommendations
}

const systemRisks = `Vous êtes un expert juridique spécialisé dans l'analyse de risques contractuels.
Votre tâche est d'identifier et d'évaluer les risques juridiques potentiels basés sur les clauses extraites.

Les niveaux de risque doivent être un nombre entier entre 1 et 5:
1 = Très faible
2 = Faible
3 = Moyen
4 = Élevé
5 = Très élevé
`

const jsonInstructionsRisks = `Répondez au format JSON suivant:
[
  {
    "title": "Titre du risque",
    "description": "Description du risque",
    "level": niveau_de_risque,
    "impact": "Impact potentiel",
    "mitigation": "Pistes de mitigation (facultatif)"
  },
  ...
]`

func promptRisks(clausesJSON, documentType string) string {
	return fmt.Sprintf(`Sur la base des clauses suivantes extraites d'un document juridique de type %s, identifiez et évaluez les risques juridiques potentiels.

Clauses extraites:
%s

Pour chaque risque, fournissez:
1. Un titre descriptif
2. Une description détaillée
3. Un niveau de risque (1 à 5)
4. Un impact potentiel
5. Des pistes de mitigation (facultatif)

`, documentType, clausesJSON) + jsonInstructionsRisks
}

const systemPrecedents = `Vous êtes un expert juridique spécialisé dans la jurisprudence et les précédents contractuels.
Votre tâche est d'identifier des précédents juridiques pertinents (jurisprudence, cas types, références doctrinales) en rapport avec les clauses extraites d'un document juridique.
`

const jsonInstructionsPrecedents = `Répondez au format JSON suivant:
[
  {
    "title": "Titre du précédent",
    "description": "Description du précédent",
    "type": "Type de précédent (jurisprudence, doctrine, cas type)",
    "relevance": "Pertinence par rapport aux clauses analysées",
    "source": "Source ou référence (si connue)"
  },
  ...
]`

func promptPrecedents(clausesJSON, documentType string) string {
	return fmt.Sprintf(`Sur la base des clauses suivantes extraites d'un document juridique de type %s, identifiez des précédents juridiques pertinents.

Clauses extraites:
%s

Pour chaque précédent, fournissez:
1. Un titre descriptif
2. Une description détaillée
3. Le type de précédent
4. Sa pertinence par rapport aux clauses analysées
5. Sa source ou référence (si connue)

`, documentType, clausesJSON) + jsonInstructionsPrecedents
}

const systemSummary = `Vous êtes un expert juridique spécialisé dans la synthèse de documents contractuels. Votre tâche est de générer un résumé concis mais complet d'un document juridique et de son analyse. Le résumé doit être clair, précis et accessible à des non-juristes tout en restant juridiquement rigoureux.`

func promptSummary(documentPreview, clausesJSON, risksJSON, documentType string) string {
	return fmt.Sprintf(`Générez un résumé concis mais complet du document juridique de type %s et de son analyse.

Le résumé doit inclure:
1. Une vue d'ensemble du document
2. Les principales clauses et leurs implications
3. Les risques majeurs identifiés
4. Une conclusion sur la qualité juridique du document

Document (aperçu) :
%s...

Clauses extraites:
%s

Risques identifiés:
%s

Utilisez le format Markdown pour structurer votre résumé (titres, sous-titres, puces). Le résumé doit être clair, concis et rigoureux.
`, documentType, documentPreview, clausesJSON, risksJSON)
}
