package intent

// Term is a glossary entry from the general school regulations.
type Term struct {
	Name       string
	Definition string
}

// Glossary lists the defined terms in match priority order. When two terms
// score the same, the earlier one wins.
var Glossary = []Term{
	{"Academia", "Órgano constituido por profesores que tiene la finalidad de proponer, analizar, opinar, estructurar y evaluar el proceso educativo."},
	{"Actividades complementarias", "Aquéllas que contribuyen a la formación integral del alumno y que no necesariamente forman parte del programa académico en el que se encuentra inscrito."},
	{"Alumno", "A la persona inscrita en algún programa académico que se imparta en cualquier nivel educativo y modalidad educativa que ofrece el Instituto Politécnico Nacional."},
	{"Alumno en movilidad", "Aquél en situación escolar regular que cursa unidades de aprendizaje, desarrolla actividades de investigación o complementarias en una institución educativa, de investigación o del sector productivo, nacional o extranjera, de conformidad con la normatividad institucional y, en su caso, con los convenios correspondientes."},
	{"Alumno visitante", "Aquél de otra institución educativa nacional o extranjera que cursa unidades de aprendizaje o desarrolla actividades de investigación o complementarias en el Instituto, de conformidad con la normatividad institucional y de acuerdo a los convenios correspondientes, mismo que será considerado como alumno durante el tiempo que se encuentre inscrito en dichas unidades o actividades."},
	{"Ambientes de aprendizaje", "A los espacios y recursos disponibles para la intermediación en la adquisición y generación del conocimiento."},
	{"Calendario académico", "A la programación que define los tiempos en los cuales se realizan anualmente las actividades académicas y de gestión escolar, en las diversas modalidades educativas que imparte el Instituto Politécnico Nacional."},
	{"Carga máxima en créditos", "Al resultado de dividir el número total de créditos del programa académico entre el número de periodos escolares de la duración mínima del plan de estudio."},
	{"Carga media en créditos", "Al resultado de dividir el número total de créditos del programa académico entre el número de periodos escolares de la duración establecida en el plan de estudio."},
	{"Carga mínima en créditos", "Al resultado de dividir el número total de créditos del programa académico entre el número de periodos escolares de la duración máxima del plan de estudio."},
	{"Ciclo escolar", "Al lapso anual que define el Calendario Académico del Instituto Politécnico Nacional."},
	{"Comisión de Situación Escolar", "Al órgano colegiado que emana de los Consejos Técnicos Consultivos Escolares, del Consejo General Consultivo, o es reconocido por éste y se encarga de dictaminar los asuntos derivados de la situación escolar, en los términos de la normatividad aplicable."},
	{"Cooperación académica", "A las acciones conjuntas entre dos o más instituciones nacionales o extranjeras, en las que participan alumnos, profesores, investigadores y personal administrativo, relacionadas con docencia, investigación, extensión de los conocimientos, difusión de la cultura, promoción del deporte y apoyo a la administración, gestión y dirección, en el marco de un proyecto o programa."},
	{"Crédito", "A la unidad de reconocimiento académico que mide y cuantifica las actividades de aprendizaje contempladas en un plan de estudio; es universal, transferible entre programas académicos y equivalente al trabajo académico del alumno."},
	{"Dirección de Coordinación", "A las direcciones de educación media superior, de educación superior, de posgrado, de educación continua, de formación en lenguas extranjeras, de administración escolar, así como la coordinación de cooperación académica."},
	{"Egreso", "Al proceso mediante el cual el alumno concluye sus estudios y acredita la totalidad del programa académico en el que estuvo inscrito."},
	{"Evaluación a título de suficiencia", "A la que comprende el total de los contenidos del programa de estudios y que el alumno podrá presentar cuando no haya acreditado de manera ordinaria o extraordinaria alguna unidad de aprendizaje."},
	{"ETS", "A la que comprende el total de los contenidos del programa de estudios y que el alumno podrá presentar cuando no haya acreditado de manera ordinaria o extraordinaria alguna unidad de aprendizaje."},
	{"Evaluación de saberes previamente adquiridos", "A la que permite acreditar unidades de aprendizaje sin haberlas cursado. Su aplicación se sujetará a lo descrito en el plan y programa de estudios, y a los lineamientos aplicables."},
	{"ESPA", "A la que permite acreditar unidades de aprendizaje sin haberlas cursado. Su aplicación se sujetará a lo descrito en el plan y programa de estudios, y a los lineamientos aplicables."},
	{"Evaluación extraordinaria", "A la que comprende el total de los contenidos del programa de estudios y que el alumno podrá presentar voluntariamente, dentro del mismo periodo escolar, una vez que cursó la unidad de aprendizaje y no haya obtenido un resultado aprobatorio, o bien, si habiéndola acreditado, desea mejorar su calificación."},
	{"Evaluación ordinaria", "A la que se presenta con fines de acreditación durante el periodo escolar y considera las evidencias de aprendizaje señaladas en el programa de estudios."},
	{"Expediente Académico", "Al documento que contiene la información y el historial académico del alumno."},
	{"Flexibilidad", "Característica del plan de estudio que permite al alumno definir su trayectoria escolar dentro del marco de la normatividad aplicable."},
	{"Ingreso", "Al proceso a través del cual el aspirante a incorporarse como alumno o usuario de servicios educativos complementarios cumple con todos los requisitos de admisión establecidos para cualquier programa académico o servicio educativo que ofrece el Instituto Politécnico Nacional."},
	{"Instituto", "Al Instituto Politécnico Nacional."},
	{"Mapa curricular", "A la representación gráfica de las unidades de aprendizaje que conforman un plan de estudio."},
	{"Modalidad educativa", "A la forma en que se organizan, distribuyen y desarrollan los planes y programas de estudio para su impartición."},
	{"Movilidad académica", "Al proceso que permita al alumno, en situación escolar regular, participar en programas académicos o desarrollar actividades académicas complementarias en instituciones nacionales o extranjeras con las que el Instituto tenga convenio para tal fin o formen parte de un programa académico reconocido que incluya tal movilidad."},
	{"Nivel educativo", "A cada una de las etapas en las que se estructuran los estudios que ofrece el Instituto: medio superior, superior y posgrado."},
	{"Periodo escolar", "Al lapso señalado en el calendario académico para cursar unidades de aprendizaje de un programa académico."},
	{"Plan de estudio", "A la estructura curricular que se deriva de un programa académico y que permite cumplir con los propósitos de formación general, la adquisición de conocimientos y el desarrollo de capacidades correspondientes a un nivel y modalidad educativa."},
	{"Programa académico", "Al conjunto organizado de elementos necesarios para generar, adquirir y aplicar el conocimiento en un campo específico; así como para desarrollar habilidades, actitudes y valores en el alumno, en diferentes áreas del conocimiento."},
	{"Programa académico en red", "Al que desarrollan e imparten conjuntamente varias unidades académicas del Instituto o con otras instituciones con las que se tenga convenio."},
	{"Programa de estudios", "A los contenidos formativos de una unidad de aprendizaje contemplada en un plan de estudio; especifica los objetivos a lograr por los alumnos en un periodo escolar; establece la carga horaria, número de créditos, tipos de espacios, ambientes y actividades de aprendizaje, prácticas escolares, bibliografía, plan de evaluación y programa sintético."},
	{"Trayectoria escolar", "Al proceso a través del cual el alumno construye su formación con base en un plan de estudio."},
	{"Tutor", "Al personal académico asignado para acompañar, orientar y asesorar al alumno en su trayectoria escolar con la finalidad de que concluya satisfactoriamente sus estudios."},
	{"Usuario de servicios educativos complementarios", "A la persona registrada en cualquiera de los programas que ofrece el Instituto en materia de capacitación, actualización técnica y profesional, formación empresarial, educación continua o formación de capacidades a lo largo de la vida y lenguas extranjeras, entre otros."},
	{"Dictamen", "Al proceso formal y oficial mediante el cual un alumno, generalmente con una situación académica irregular, solicita un dictamen a las autoridades escolares competentes. Este dictamen es una resolución que le permite continuar o regularizar su trayectoria académica a pesar de haber incurrido en alguna falta a la normativa, como tener materias reprobadas o haber excedido el tiempo reglamentario para finalizar sus estudios. Si el dictamen es favorable, le otorga la autorización para reinscribirse, presentar evaluaciones a título de suficiencia (ETS), o cualquier otra acción necesaria para recuperar su calidad de estudiante y proseguir su formación."},
	{"Dictaminado", "Al estado en el que se encuentra un alumno que ha solicitado un dictamen a las autoridades escolares competentes."},
}

// Definition returns the glossary text for name, matched exactly.
func Definition(name string) (string, bool) {
	for _, t := range Glossary {
		if t.Name == name {
			return t.Definition, true
		}
	}
	return "", false
}
